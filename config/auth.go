package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// MinBcryptCost keeps verification in the tens of milliseconds.
	MinBcryptCost = 10
	// MaxBcryptCost bounds login latency.
	MaxBcryptCost = 14

	defaultSessionTTL = time.Hour
	minSecretLength   = 32

	// DevSessionSecret is used when SESSION_SECRET is unset in dev mode only.
	DevSessionSecret = "gatekeeper-dev-session-secret-change-me"
)

// SessionConfig controls the session cookie and its server-side lifetime.
type SessionConfig struct {
	// Secret signs the session_id cookie (HMAC-SHA256). At least 32 bytes.
	Secret string `env:"SECRET"`
	// BlockKey optionally encrypts cookie values (AES-128/192/256).
	BlockKey string        `env:"BLOCK_KEY"`
	TTL      time.Duration `env:"TTL"       envDefault:"1h"`
}

// Sanitize applies the default TTL.
func (s *SessionConfig) Sanitize() {
	s.Secret = strings.TrimSpace(s.Secret)
	s.BlockKey = strings.TrimSpace(s.BlockKey)
	if s.TTL <= 0 {
		s.TTL = defaultSessionTTL
	}
}

// Validate requires a real secret outside dev mode. In dev mode a missing
// secret is replaced with DevSessionSecret.
func (s *SessionConfig) Validate(isDev bool) error {
	if s.Secret == "" {
		if !isDev {
			return errors.New("SESSION_SECRET is required")
		}
		s.Secret = DevSessionSecret
	}
	if len(s.Secret) < minSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSecretLength)
	}
	switch len(s.BlockKey) {
	case 0, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("SESSION_BLOCK_KEY must be 16, 24 or 32 bytes, got %d", len(s.BlockKey))
	}
}

// AuthConfig groups password and authorization settings.
type AuthConfig struct {
	// BcryptCost is the password hashing work factor, clamped to
	// [MinBcryptCost, MaxBcryptCost].
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`
	// RevalidateRole makes admin routes check the stored role on every request
	// instead of trusting the session snapshot.
	RevalidateRole bool `env:"REVALIDATE_ROLE" envDefault:"false"`
	// SSOEnabled turns on OIDC single sign-on alongside password login.
	SSOEnabled bool `env:"SSO_ENABLED" envDefault:"false"`
}

// Sanitize clamps the bcrypt cost.
func (a *AuthConfig) Sanitize() {
	if a.BcryptCost < MinBcryptCost {
		a.BcryptCost = MinBcryptCost
	}
	if a.BcryptCost > MaxBcryptCost {
		a.BcryptCost = MaxBcryptCost
	}
}

// OAuthConfig contains OIDC settings, used only when Auth.SSOEnabled.
type OAuthConfig struct {
	Issuer       string `env:"ISSUER"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scopes       string `env:"SCOPES"        envDefault:"openid email profile"`
}

// Sanitize trims whitespace from the provider settings.
func (o *OAuthConfig) Sanitize() {
	o.Issuer = strings.TrimSpace(o.Issuer)
	o.ClientID = strings.TrimSpace(o.ClientID)
	o.RedirectURL = strings.TrimSpace(o.RedirectURL)
}

// Validate checks the provider settings when SSO is enabled.
func (o *OAuthConfig) Validate(enabled bool) error {
	if !enabled {
		return nil
	}
	var missing []string
	for name, v := range map[string]string{
		"OAUTH_ISSUER":        o.Issuer,
		"OAUTH_CLIENT_ID":     o.ClientID,
		"OAUTH_CLIENT_SECRET": o.ClientSecret,
		"OAUTH_REDIRECT_URL":  o.RedirectURL,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("single sign-on is enabled but %s not set", strings.Join(missing, ", "))
	}
	return nil
}
