package bootstrap

import (
	"context"
	"log/slog"

	"github.com/target/gatekeeper/config"
	"github.com/target/gatekeeper/internal/adapters/oidc"
	"github.com/target/gatekeeper/internal/ports"
)

// buildAuthProvider returns the OIDC provider when single sign-on is
// enabled. A provider that cannot be discovered leaves SSO off so password
// login keeps working.
//
//nolint:ireturn // callers only need the port.
func buildAuthProvider(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) ports.AuthProvider {
	if !cfg.Auth.SSOEnabled {
		return nil
	}
	prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		Scope:        cfg.OAuth.Scopes,
		DiscoveryURL: cfg.OAuth.Issuer,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to create OIDC provider, single sign-on disabled",
			"issuer", cfg.OAuth.Issuer, "error", err)
		return nil
	}
	logger.InfoContext(ctx, "single sign-on enabled", "issuer", cfg.OAuth.Issuer)
	return prov
}
