package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"clipbooking/internal/app/cleanup"
	"clipbooking/internal/config"
	"clipbooking/internal/repository/bookings_repo"
)

// runSweep performs a single cleanup pass, for deployments that schedule it
// with an external cron instead of the in-process scheduler.
func runSweep(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.BookingCleanupMinutes <= 0 {
		return errors.New("BOOKING_CLEANUP_MINUTES must be positive")
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := connectDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB(db, logger)

	sweeper := cleanup.NewSweeper(db, bookings_repo.NewBookingRepository(db), logger.With(zap.String("component", "BookingSweeper")))
	report, err := sweeper.Sweep(ctx, cfg.CleanupMaxAge())
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	if report.Failed > 0 {
		return fmt.Errorf("sweep: %d of %d bookings could not be deleted", report.Failed, report.Found)
	}
	return nil
}
