package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/gatekeeper/config"
	"github.com/target/gatekeeper/internal/core"
	httpx "github.com/target/gatekeeper/internal/http"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 10 * time.Second

// HTTPServerConfig contains what the HTTP handler is built from.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Health   map[string]httpx.HealthCheck
	// TemplateFS overrides the embedded templates.
	TemplateFS fs.FS
	Logger     *slog.Logger
}

// BuildHTTPHandler assembles cookies, flash storage and the router.
func BuildHTTPHandler(cfg HTTPServerConfig) (http.Handler, error) {
	if cfg.Config == nil {
		return nil, errors.New("app config is required")
	}
	if cfg.Services.Auth == nil || cfg.Services.Admin == nil {
		return nil, errors.New("auth and admin services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	attrs := httpx.CookieAttrs{Domain: appCfg.HTTP.CookieDomain, Secure: appCfg.HTTP.SecureCookies}
	keys := DeriveCookieKeys(appCfg.Session)
	cookies, err := httpx.NewSessionCookies(httpx.SessionCookieConfig{
		Keys:  keys.Session,
		Attrs: attrs,
		TTL:   appCfg.Session.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("session cookies: %w", err)
	}

	var roles core.RoleSource
	if appCfg.Auth.RevalidateRole && cfg.Services.Users != nil {
		roles = cfg.Services.Users
	}

	services := httpx.RouterServices{
		Auth:  cfg.Services.Auth,
		Admin: cfg.Services.Admin,
		Roles: roles,
		Web: httpx.WebConfig{
			Cookies: cookies,
			Flash:   httpx.NewFlashStore(keys.Flash, attrs, logger),
			Attrs:   attrs,
		},
		Health:     cfg.Health,
		TemplateFS: cfg.TemplateFS,
		IsDev:      appCfg.IsDev,
		Logger:     logger,
	}
	if cfg.Services.Metrics.Enabled() {
		services.Metrics = cfg.Services.Metrics
	}
	return httpx.NewRouter(services)
}

// HealthChecks probes the database and the session store.
func HealthChecks(db *sql.DB, rdb redis.UniversalClient) map[string]httpx.HealthCheck {
	checks := map[string]httpx.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// NewHTTPServer wraps handler with the server timeouts used in production.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// RunHTTPServer listens on srv.Addr and serves until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func RunHTTPServer(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, srv, ln, logger)
}

// serve runs srv on ln and shuts it down gracefully once ctx is done.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return group.Wait()
}
