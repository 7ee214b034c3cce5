package bookings_repo

import (
	"context"
	"time"

	"clipbooking/internal/domain"
)

type BookingRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, booking *domain.Booking) error
	GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.Booking, error)
	ListTx(ctx context.Context, querier domain.Querier) ([]domain.Booking, error)
	UpdateTx(ctx context.Context, querier domain.Querier, id string, patch domain.BookingPatch) error
	DeleteTx(ctx context.Context, querier domain.Querier, id string) error
	ListPendingCreatedBeforeTx(ctx context.Context, querier domain.Querier, cutoff time.Time) ([]domain.Booking, error)
	DeletePendingTx(ctx context.Context, querier domain.Querier, id string) (bool, error)
	ConfirmByPaymentIDTx(ctx context.Context, querier domain.Querier, paymentID string) (int64, error)
}
