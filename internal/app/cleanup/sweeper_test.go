package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"clipbooking/internal/domain"
)

type memoryStore struct {
	bookings  map[string]domain.Booking
	listErr   error
	deleteErr map[string]error
}

func newMemoryStore(bookings ...domain.Booking) *memoryStore {
	store := &memoryStore{bookings: make(map[string]domain.Booking), deleteErr: make(map[string]error)}
	for _, b := range bookings {
		store.bookings[b.ID] = b
	}
	return store
}

func (m *memoryStore) ListPendingCreatedBeforeTx(ctx context.Context, q domain.Querier, cutoff time.Time) ([]domain.Booking, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.Status == domain.BookingStatusPending && b.CreatedAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryStore) DeletePendingTx(ctx context.Context, q domain.Querier, id string) (bool, error) {
	if err := m.deleteErr[id]; err != nil {
		return false, err
	}
	b, ok := m.bookings[id]
	if !ok || b.Status != domain.BookingStatusPending {
		return false, nil
	}
	delete(m.bookings, id)
	return true, nil
}

var sweepNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func booking(id string, status domain.BookingStatus, age time.Duration) domain.Booking {
	return domain.Booking{ID: id, Status: status, CreatedAt: sweepNow.Add(-age)}
}

func newTestSweeper(t *testing.T, store BookingStore) *Sweeper {
	s := NewSweeper(nil, store, zaptest.NewLogger(t))
	s.now = func() time.Time { return sweepNow }
	return s
}

func TestSweepDeletesOnlyExpiredPending(t *testing.T) {
	store := newMemoryStore(
		booking("old-pending", domain.BookingStatusPending, 15*time.Minute),
		booking("fresh-pending", domain.BookingStatusPending, 5*time.Minute),
		booking("old-confirmed", domain.BookingStatusConfirmed, 30*time.Minute),
	)
	sweeper := newTestSweeper(t, store)

	report, err := sweeper.Sweep(context.Background(), 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, SweepReport{Cutoff: sweepNow.Add(-10 * time.Minute), Found: 1, Deleted: 1}, report)
	assert.NotContains(t, store.bookings, "old-pending")
	assert.Contains(t, store.bookings, "fresh-pending")
	assert.Contains(t, store.bookings, "old-confirmed")
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newMemoryStore(booking("old-pending", domain.BookingStatusPending, time.Hour))
	sweeper := newTestSweeper(t, store)

	_, err := sweeper.Sweep(context.Background(), 10*time.Minute)
	require.NoError(t, err)

	report, err := sweeper.Sweep(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, report.Found)
	assert.Zero(t, report.Deleted)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	store := newMemoryStore(
		booking("a", domain.BookingStatusPending, time.Hour),
		booking("b", domain.BookingStatusPending, time.Hour),
		booking("c", domain.BookingStatusPending, time.Hour),
	)
	store.deleteErr["b"] = errors.New("deadlock detected")
	sweeper := newTestSweeper(t, store)

	report, err := sweeper.Sweep(context.Background(), 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Found)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, store.bookings, "b")
}

type racingStore struct {
	*memoryStore
}

// ListPendingCreatedBeforeTx confirms the bookings right after listing them,
// as a concurrent payment would.
func (r racingStore) ListPendingCreatedBeforeTx(ctx context.Context, q domain.Querier, cutoff time.Time) ([]domain.Booking, error) {
	out, err := r.memoryStore.ListPendingCreatedBeforeTx(ctx, q, cutoff)
	for _, b := range out {
		b.Status = domain.BookingStatusConfirmed
		r.bookings[b.ID] = b
	}
	return out, err
}

func TestSweepNeverDeletesBookingConfirmedMeanwhile(t *testing.T) {
	store := racingStore{newMemoryStore(booking("a", domain.BookingStatusPending, time.Hour))}
	sweeper := newTestSweeper(t, store)

	report, err := sweeper.Sweep(context.Background(), 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Deleted)
	assert.Contains(t, store.bookings, "a")
}

func TestSweepListFailure(t *testing.T) {
	store := newMemoryStore()
	store.listErr = errors.New("connection refused")
	sweeper := newTestSweeper(t, store)

	_, err := sweeper.Sweep(context.Background(), 10*time.Minute)
	assert.ErrorContains(t, err, "connection refused")
}
