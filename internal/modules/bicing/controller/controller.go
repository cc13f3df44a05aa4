package controller

import (
	"context"
	"log/slog"
	"net/http"

	"bicing-dashboard/internal/modules/bicing/repository"
	"bicing-dashboard/internal/modules/bicing/types"
)

// Forecaster turns an e-bike series into a forecast.
type Forecaster interface {
	Run(ctx context.Context, ebike []int64) (types.Forecast, error)
}

type BicingController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type bicingControllerImpl struct {
	resolver   repository.Resolver
	forecaster Forecaster
	// recent is how many rows feed a forecast requested without a window.
	recent int
	logger *slog.Logger
}

func NewBicingController(resolver repository.Resolver, forecaster Forecaster, recent int, logger *slog.Logger) BicingController {
	if logger == nil {
		logger = slog.Default()
	}
	return &bicingControllerImpl{
		resolver:   resolver,
		forecaster: forecaster,
		recent:     max(recent, 1),
		logger:     logger,
	}
}

func (c *bicingControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleDashboard)
	mux.HandleFunc("GET /api/v1/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1/bounds", c.handleBounds)
	mux.HandleFunc("GET /api/v1/stations/{id}/window", c.handleWindow)
	mux.HandleFunc("POST /api/v1/stations/{id}/forecast", c.handleForecast)
}
