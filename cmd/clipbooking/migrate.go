package main

import (
	"context"
	"fmt"

	"clipbooking/internal/config"
)

func runMigrate(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// migrate dials on its own; this only waits for the server to come up.
	db, err := connectDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB(db, logger)

	if err := runMigrations(cfg, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
