package ingest

import (
	"context"
	"log/slog"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"
)

const insertTimeout = 5 * time.Second

// MQTTSubscriber is the part of the broker client ingest needs.
type MQTTSubscriber interface {
	SetMessageHandler(handler func(msg types.StatusMessage) error)
}

// Register stores every validated status message the subscriber receives.
func Register(subscriber MQTTSubscriber, store StatusStore, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(msg types.StatusMessage) error {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		defer cancel()

		if err := msg.Validate(); err != nil {
			return err
		}
		if err := store.InsertStatus(ctx, msg); err != nil {
			logger.Error("failed to insert station status",
				"station_id", msg.StationID,
				"error", err,
			)
			return err
		}

		logger.Debug("stored station status",
			"station_id", msg.StationID,
			"last_updated", msg.LastUpdated,
		)
		return nil
	})
}
