package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/replyflow/pkg/logger"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler always answers 200 while the process serves requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, healthStatus{Status: "ok"})
	}
}

// ReadinessHandler runs every check with timeout and answers 503 if any fails.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		status := healthStatus{Status: "ok", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					logger.Component("health"),
					slog.String("check", name),
					logger.Error(err),
				)
				status.Checks[name] = "unavailable"
				status.Status = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			status.Checks[name] = "ok"
		}
		writeHealth(w, code, status)
	}
}

func writeHealth(w http.ResponseWriter, code int, body healthStatus) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
