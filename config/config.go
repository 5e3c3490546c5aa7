package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: sessions, password hashing and single sign-on
//   - database.go: PostgreSQL and Redis
//   - http.go: HTTP server and cookies
//   - observability.go: metrics
type AppConfig struct {
	// IsDev controls development mode behavior (template reloading, insecure
	// default secrets). Set DEV=true or NODE_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	HTTP    HTTPConfig
	Session SessionConfig `envPrefix:"SESSION_"`
	Auth    AuthConfig    `envPrefix:"AUTH_"`
	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	Metrics MetricsConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()
	c.Session.Sanitize()
	c.Auth.Sanitize()
	c.OAuth.Sanitize()
	c.Metrics.Sanitize()
}

// detectDevMode falls back to NODE_ENV, which frontend tooling commonly sets.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Validate reports configuration that cannot be used to serve traffic.
func (c *AppConfig) Validate() error {
	if err := c.Session.Validate(c.IsDev); err != nil {
		return err
	}
	return c.OAuth.Validate(c.Auth.SSOEnabled)
}
