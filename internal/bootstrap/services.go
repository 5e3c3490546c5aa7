package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/gatekeeper/config"
	"github.com/target/gatekeeper/internal/adapters/bcrypt"
	redisadapter "github.com/target/gatekeeper/internal/adapters/redis"
	"github.com/target/gatekeeper/internal/data"
	"github.com/target/gatekeeper/internal/observability/statsd"
	"github.com/target/gatekeeper/internal/ports"
	"github.com/target/gatekeeper/internal/service"
)

// ServiceDeps holds the infrastructure the services are built on.
type ServiceDeps struct {
	Config *config.AppConfig     // Required
	DB     *sql.DB               // Required
	Redis  redis.UniversalClient // Required
	Logger *slog.Logger
	// Provider replaces OIDC discovery when set.
	Provider ports.AuthProvider
}

// ServiceContainer holds the application services.
type ServiceContainer struct {
	Users    *data.UserRepo
	Sessions *redisadapter.SessionStore
	Auth     *service.AuthService
	Admin    *service.AdminService
	Metrics  *statsd.Client
}

// Close releases resources owned by the container.
func (c ServiceContainer) Close() error {
	return c.Metrics.Close()
}

// NewServices wires repositories, adapters and services.
func NewServices(ctx context.Context, deps ServiceDeps) (ServiceContainer, error) {
	if deps.Config == nil || deps.DB == nil || deps.Redis == nil {
		return ServiceContainer{}, errors.New("config, database and redis are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := statsd.NewClient(ctx, statsd.Config{
		Enabled: cfg.Metrics.IsEnabled(),
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create metrics client: %w", err)
	}
	telemetry := service.Telemetry{Logger: logger, Metrics: metrics}

	users := data.NewUserRepo(deps.DB)
	sessions := redisadapter.NewSessionStore(deps.Redis)
	hasher := bcrypt.NewHasher(cfg.Auth.BcryptCost)

	provider := deps.Provider
	if provider == nil {
		provider = buildAuthProvider(ctx, cfg, logger)
	}

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Stores:    service.AuthStores{Users: users, Sessions: sessions, Hasher: hasher},
		Config:    service.AuthConfig{SessionTTL: cfg.Session.TTL, Provider: provider},
		Telemetry: telemetry,
	})
	if err != nil {
		return ServiceContainer{}, errors.Join(fmt.Errorf("create auth service: %w", err), metrics.Close())
	}
	admin, err := service.NewAdminService(service.AdminServiceOptions{
		Users:     users,
		Hasher:    hasher,
		Telemetry: telemetry,
	})
	if err != nil {
		return ServiceContainer{}, errors.Join(fmt.Errorf("create admin service: %w", err), metrics.Close())
	}

	return ServiceContainer{
		Users:    users,
		Sessions: sessions,
		Auth:     auth,
		Admin:    admin,
		Metrics:  metrics,
	}, nil
}
