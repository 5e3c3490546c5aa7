package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// SecureCookies forces the Secure attribute even on plain-HTTP requests,
	// for deployments behind a TLS terminator that drops X-Forwarded-Proto.
	SecureCookies bool `env:"HTTP_SECURE_COOKIES" envDefault:"false"`
}
