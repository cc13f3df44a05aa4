package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"bicing-dashboard/internal/cache"
	"bicing-dashboard/internal/config"
	"bicing-dashboard/internal/db"
	"bicing-dashboard/internal/httpapi"
	"bicing-dashboard/internal/migrate"
	"bicing-dashboard/internal/modules/bicing"
	"bicing-dashboard/internal/modules/bicing/source"
	"bicing-dashboard/internal/modules/bicing/views"
	"bicing-dashboard/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMigrate", cfg.Migrate,
		"queryTTL", cfg.QueryTTL,
		"queryRPS", cfg.QueryRPS,
		"cacheBackend", cfg.CacheBackend,
		"displayTZ", cfg.DisplayLocation.String(),
		"forecastDelay", cfg.ForecastDelay,
		"mqttBroker", cfg.MQTTBroker,
		"mqttTopic", cfg.MQTTTopic,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if cfg.Migrate {
		if err := migrate.Run(ctx, dbConn, cfg.Driver); err != nil {
			return err
		}
	}

	var ok int
	if err := dbConn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return fmt.Errorf("warehouse check: %w", err)
	}
	if ok != 1 {
		return errors.New("warehouse connection failed")
	}
	logger.Info("warehouse connection successful")

	resultCache, closeCache, err := newResultCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	conn := source.NewSQLConnection(dbConn, cfg.Driver, resultCache, source.NewLimiter(cfg.QueryRPS, cfg.QueryBurst), logger)
	mux := httpapi.NewMux(dbConn)
	bicing.RegisterFeature(mux, conn, cfg, logger)

	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled() {
		subscriber, err = mqtt.NewSubscriber(cfg, logger)
		if err != nil {
			return err
		}
		// The handler must be in place before Connect; the broker may deliver
		// queued messages right after CONNACK.
		bicing.RegisterIngest(subscriber, dbConn, cfg, logger)

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without ingest)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// newResultCache builds the configured cache and a func releasing its resources.
func newResultCache(ctx context.Context, cfg config.Config) (cache.ResultCache, func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedis(client), func() { _ = client.Close() }, nil
	case "none":
		return cache.Noop{}, func() {}, nil
	default:
		return cache.NewMemory(), func() {}, nil
	}
}
