package payments_repo

import (
	"context"

	"clipbooking/internal/domain"
)

type PaymentRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error
	FinalizeTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error
	GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.Payment, error)
	ListTx(ctx context.Context, querier domain.Querier) ([]domain.Payment, error)
}
