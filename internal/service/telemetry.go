package service

import (
	"io"
	"log/slog"

	"github.com/target/gatekeeper/internal/ports"
)

// Telemetry groups the optional observability hooks shared by services.
type Telemetry struct {
	Logger  *slog.Logger
	Metrics ports.Metrics
}

func (t Telemetry) logger(component string) *slog.Logger {
	if t.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return t.Logger.With("component", component)
}

func (t Telemetry) count(name string, tags map[string]string) {
	if t.Metrics == nil {
		return
	}
	t.Metrics.Count(name, 1, tags)
}
