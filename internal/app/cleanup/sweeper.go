package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clipbooking/internal/domain"
)

type BookingStore interface {
	ListPendingCreatedBeforeTx(ctx context.Context, querier domain.Querier, cutoff time.Time) ([]domain.Booking, error)
	DeletePendingTx(ctx context.Context, querier domain.Querier, id string) (bool, error)
}

// SweepReport summarizes one pass over expired pending bookings. Skipped
// counts bookings that left pending between listing and deletion.
type SweepReport struct {
	Cutoff  time.Time `json:"cutoff"`
	Found   int       `json:"found"`
	Deleted int       `json:"deleted"`
	Skipped int       `json:"skipped"`
	Failed  int       `json:"failed"`
}

// Sweeper deletes bookings that stayed pending for longer than a maximum age.
type Sweeper struct {
	db     domain.Querier
	store  BookingStore
	now    func() time.Time
	logger *zap.Logger
}

func NewSweeper(db domain.Querier, store BookingStore, logger *zap.Logger) *Sweeper {
	return &Sweeper{db: db, store: store, now: time.Now, logger: logger}
}

// Sweep deletes every pending booking created before now-maxAge. A failed
// deletion is logged and counted; only a failure to list aborts the sweep.
func (s *Sweeper) Sweep(ctx context.Context, maxAge time.Duration) (SweepReport, error) {
	report := SweepReport{Cutoff: s.now().Add(-maxAge)}

	expired, err := s.store.ListPendingCreatedBeforeTx(ctx, s.db, report.Cutoff)
	if err != nil {
		return report, fmt.Errorf("failed to list expired bookings: %w", err)
	}
	report.Found = len(expired)
	if report.Found == 0 {
		s.logger.Debug("No expired pending bookings", zap.Time("cutoff", report.Cutoff))
		return report, nil
	}

	for _, booking := range expired {
		deleted, err := s.store.DeletePendingTx(ctx, s.db, booking.ID)
		switch {
		case err != nil:
			report.Failed++
			s.logger.Error("Failed to delete expired booking", zap.String("booking_id", booking.ID), zap.Error(err))
		case !deleted:
			report.Skipped++
			s.logger.Info("Booking is no longer pending, skipped", zap.String("booking_id", booking.ID))
		default:
			report.Deleted++
			s.logger.Info("Deleted expired booking",
				zap.String("booking_id", booking.ID),
				zap.String("selected_date", booking.SelectedDate),
				zap.Time("created_at", booking.CreatedAt))
		}
	}

	s.logger.Info("Cleanup sweep completed",
		zap.Int("found", report.Found),
		zap.Int("deleted", report.Deleted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}
