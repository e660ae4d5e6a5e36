// Package health provides HTTP handlers for service health monitoring.
//
// Liveness reports that the process is running; Readiness verifies the
// service's dependencies. Checks follow the func(context.Context) error
// signature produced by pg.Healthcheck and redis.Healthcheck.
//
// Usage:
//
//	mux.Handle("/health/live", health.Liveness())
//	mux.Handle("/healthz", health.Readiness(log,
//		pg.Healthcheck(pool),
//		redis.Healthcheck(client),
//	))
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/relayhq/chathub/core/logger"
)

// Liveness always answers 200 "ALIVE". No dependency checks.
func Liveness() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})
}

// Readiness answers 200 "READY" when every check passes and 503 when
// any fails. Failures are logged with the failing check's error.
func Readiness(log *slog.Logger, checks ...func(context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				if log != nil {
					log.ErrorContext(r.Context(), "readiness check failed",
						logger.Component("health"),
						logger.Error(err),
					)
				}
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})
}
