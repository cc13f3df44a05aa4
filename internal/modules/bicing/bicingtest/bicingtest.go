// Package bicingtest provides a migrated in-memory warehouse for tests.
package bicingtest

import (
	"context"
	"database/sql"
	"testing"

	"bicing-dashboard/internal/migrate"
	"bicing-dashboard/internal/modules/bicing/ingest"
	"bicing-dashboard/internal/modules/bicing/types"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDB returns a single-connection in-memory SQLite database with the
// station_status schema applied.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	if err := migrate.Run(context.Background(), conn, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// Status returns a valid in-service snapshot.
func Status(stationID, mechanical, ebike, docks, lastUpdated int64) types.StatusMessage {
	return types.StatusMessage{
		StationID:         stationID,
		NumBikesAvailable: mechanical + ebike,
		Mechanical:        mechanical,
		Ebike:             ebike,
		NumDocksAvailable: docks,
		LastReported:      lastUpdated - 30,
		IsChargingStation: true,
		Status:            types.StatusInService,
		IsInstalled:       1,
		IsRenting:         1,
		IsReturning:       1,
		Traffic:           "low",
		LastUpdated:       lastUpdated,
		TTL:               30,
		V1:                "1.0",
	}
}

// Insert stores msgs through the ingest store.
func Insert(t testing.TB, conn *sql.DB, msgs ...types.StatusMessage) {
	t.Helper()
	store := ingest.NewStore(conn, "sqlite3")
	for _, m := range msgs {
		if err := store.InsertStatus(context.Background(), m); err != nil {
			t.Fatalf("insert %+v: %v", m, err)
		}
	}
}
