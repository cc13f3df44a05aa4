package bicing

import (
	"database/sql"
	"log/slog"
	"net/http"

	"bicing-dashboard/internal/config"
	"bicing-dashboard/internal/modules/bicing/controller"
	"bicing-dashboard/internal/modules/bicing/forecast"
	"bicing-dashboard/internal/modules/bicing/ingest"
	"bicing-dashboard/internal/modules/bicing/repository"
	"bicing-dashboard/internal/modules/bicing/source"
)

// RegisterFeature mounts the dashboard and its JSON API on mux. All warehouse
// reads go through conn.
func RegisterFeature(mux *http.ServeMux, conn source.Connection, cfg config.Config, logger *slog.Logger) {
	adapter := source.NewAdapter(conn)
	resolver := repository.NewResolver(adapter, cfg.QueryTTL, cfg.DisplayLocation)
	model := forecast.New(
		forecast.WithDelay(cfg.ForecastDelay),
		forecast.WithHorizon(cfg.ForecastHorizon),
		forecast.WithHistory(cfg.ForecastHistory),
	)
	bicingController := controller.NewBicingController(resolver, model, cfg.ForecastHistory, logger)
	bicingController.RegisterRoutes(mux)
}

// RegisterIngest stores the status messages delivered to subscriber.
func RegisterIngest(subscriber ingest.MQTTSubscriber, db *sql.DB, cfg config.Config, logger *slog.Logger) {
	ingest.Register(subscriber, ingest.NewStore(db, cfg.Driver), logger)
}
