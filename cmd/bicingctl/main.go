package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bicing-dashboard/internal/config"
	"bicing-dashboard/internal/logging"
	"bicing-dashboard/internal/migrate"
)

const (
	appName = "bicingctl"
	usage   = `usage: %s <command>
  migrate                     apply pending schema migrations
  seed [stations] [days]      insert synthetic snapshots every 15 minutes (default 3 stations, 2 days)
  publish [stations] [rounds] publish synthetic snapshots to MQTT_TOPIC once per second (default 3 stations, 60 rounds)
`
	seedInterval    = 15 * time.Minute
	publishInterval = time.Second
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, appName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	stations, err := argInt(args, 1, 3)
	if err != nil {
		return err
	}

	switch args[0] {
	case "migrate", "seed":
		return withDB(cfg, logger, func(conn *sql.DB) error {
			if args[0] == "migrate" {
				if err := migrate.Run(ctx, conn, cfg.Driver); err != nil {
					return err
				}
				fmt.Println("migrations applied")
				return nil
			}
			days, err := argInt(args, 2, 2)
			if err != nil {
				return err
			}
			n, err := seedDB(ctx, conn, cfg.Driver, stations, days, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("inserted %d snapshots\n", n)
			return nil
		})
	case "publish":
		rounds, err := argInt(args, 2, 60)
		if err != nil {
			return err
		}
		return publish(ctx, cfg, logger, stations, rounds)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
