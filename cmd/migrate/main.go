package main

import (
	"context"
	"fmt"
	"os"

	"gostamp/adapters/postgres"
	"gostamp/adapters/postgres/migrations"
	"gostamp/internal"
	"gostamp/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: migrate up|down|status")
		os.Exit(2)
	}
	if err := run(context.Background(), os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return fmt.Errorf("DATABASE_URL is required")
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, 1)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	migrator := migrations.NewMigrator(db, logger)

	switch command {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Applied %d migrations\n", applied)
	case "down":
		version, err := migrator.Down(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Unrecorded migration %s\n", version)
	case "status":
		status, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		applied := 0
		fmt.Println("Migration Status:")
		for _, m := range status {
			state := "pending"
			if m.Applied {
				state = "applied"
				applied++
			}
			fmt.Printf("  %s_%s: %s\n", m.Version, m.Name, state)
		}
		fmt.Printf("\nSummary: %d/%d migrations applied\n", applied, len(status))
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
