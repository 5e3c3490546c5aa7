package httpx

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type healthResponse struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

// healthHandler reports {"status":"ok"} when every check passes and 503 with
// the failing check names otherwise.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Failed = append(resp.Failed, name)
			}
		}
		code := http.StatusOK
		if len(resp.Failed) > 0 {
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			return
		}
		WriteJSON(w, code, resp)
	}
}
