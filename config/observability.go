package config

import "strings"

// MetricsConfig controls emission of auth counters and request timings to StatsD.
type MetricsConfig struct {
	Enabled       bool   `env:"METRICS_ENABLED" envDefault:"false"`
	StatsdAddress string `env:"STATSD_ADDRESS"  envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"METRICS_PREFIX"  envDefault:"gatekeeper"`
}

// Sanitize disables metrics when no address is configured.
func (c *MetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *MetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}
