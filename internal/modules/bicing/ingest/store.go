package ingest

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"bicing-dashboard/internal/db"
	"bicing-dashboard/internal/modules/bicing/types"
)

//go:embed sql/insert-status.sql
var insertStatusSQL string

// StatusStore persists station status snapshots.
type StatusStore interface {
	InsertStatus(ctx context.Context, msg types.StatusMessage) error
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type storeImpl struct {
	db     Execer
	insert string
}

func NewStore(conn Execer, driverName string) StatusStore {
	return &storeImpl{db: conn, insert: db.Rebind(driverName, insertStatusSQL)}
}

func (s *storeImpl) InsertStatus(ctx context.Context, msg types.StatusMessage) error {
	_, err := s.db.ExecContext(ctx, s.insert,
		msg.StationID,
		msg.NumBikesAvailable,
		msg.Mechanical,
		msg.Ebike,
		msg.NumDocksAvailable,
		msg.LastReported,
		msg.IsChargingStation,
		msg.Status,
		msg.IsInstalled,
		msg.IsRenting,
		msg.IsReturning,
		msg.Traffic,
		msg.LastUpdated,
		msg.TTL,
		msg.V1,
	)
	if err != nil {
		return fmt.Errorf("insert status for station %d: %w", msg.StationID, err)
	}
	return nil
}
