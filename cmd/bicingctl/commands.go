package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"bicing-dashboard/internal/config"
	"bicing-dashboard/internal/db"
	"bicing-dashboard/internal/modules/bicing/ingest"
	"bicing-dashboard/internal/modules/bicing/types"
	"bicing-dashboard/internal/mqtt"
)

func withDB(cfg config.Config, logger *slog.Logger, fn func(conn *sql.DB) error) error {
	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "err", closeErr)
		}
	}()
	return fn(conn)
}

func argInt(args []string, i, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid argument %q (expected positive integer)", args[i])
	}
	return n, nil
}

// seedDB runs seed inside one transaction so a backfill commits once.
func seedDB(ctx context.Context, conn *sql.DB, driverName string, stations, days int, now time.Time) (int, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	n, err := seed(ctx, ingest.NewStore(tx, driverName), stations, days, now)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return 0, fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return n, nil
}

// seed backfills the last days days up to now, one round per seedInterval.
func seed(ctx context.Context, store ingest.StatusStore, stations, days int, now time.Time) (int, error) {
	f := newFeed(stations, uint64(now.UnixNano()))
	end := now.Truncate(seedInterval)
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	n := 0
	for ts := start; !ts.After(end); ts = ts.Add(seedInterval) {
		for _, msg := range f.next(ts) {
			if err := store.InsertStatus(ctx, msg); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

type statusPublisher interface {
	PublishStatus(msg types.StatusMessage) error
}

func publish(ctx context.Context, cfg config.Config, logger *slog.Logger, stations, rounds int) error {
	pub, err := mqtt.NewPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer pub.Disconnect()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pub.Connect(connectCtx); err != nil {
		return err
	}

	ticker := time.NewTicker(publishInterval)
	defer ticker.Stop()
	n, err := publishRounds(ctx, pub, newFeed(stations, uint64(time.Now().UnixNano())), rounds, ticker.C, time.Now)
	logger.Info("publish finished", "messages", n)
	return err
}

// publishRounds sends one round immediately and then one per tick until rounds are done or ctx ends.
func publishRounds(ctx context.Context, pub statusPublisher, f *feed, rounds int, tick <-chan time.Time, now func() time.Time) (int, error) {
	n := 0
	for r := 0; r < rounds; r++ {
		if r > 0 {
			select {
			case <-ctx.Done():
				return n, ctx.Err()
			case <-tick:
			}
		}
		for _, msg := range f.next(now()) {
			if err := pub.PublishStatus(msg); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
