package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"bicing-dashboard/internal/config"
)

// NewServer wraps mux with request logging. WriteTimeout leaves room for the
// simulated forecast latency.
func NewServer(cfg config.Config, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.ForecastDelay + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
