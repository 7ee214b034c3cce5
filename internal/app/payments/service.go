package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clipbooking/internal/domain"
	"clipbooking/internal/outbox"
	"clipbooking/internal/repository/outbox_repo"
	"clipbooking/internal/repository/payments_repo"
	"clipbooking/internal/util"
)

var ErrInvalidPayment = errors.New("invalid payment data")

type PaymentService interface {
	GeneratePayment(ctx context.Context, req *GeneratePaymentRequest) (*domain.Payment, error)
	ListPayments(ctx context.Context) ([]domain.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)
	Record(ctx context.Context, paymentID string, declared domain.DeclaredPayment, slipURL *string, outcome domain.Outcome) (*domain.Payment, error)
}

type paymentService struct {
	db          *sql.DB
	paymentRepo payments_repo.PaymentRepository
	outboxRepo  outbox_repo.OutboxRepository
	eventsTopic string
	now         func() time.Time
	logger      *zap.Logger
}

func NewPaymentService(
	db *sql.DB,
	paymentRepo payments_repo.PaymentRepository,
	outboxRepo outbox_repo.OutboxRepository,
	eventsTopic string,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		db:          db,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		eventsTopic: eventsTopic,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *paymentService) GeneratePayment(ctx context.Context, req *GeneratePaymentRequest) (*domain.Payment, error) {
	if err := req.Validate(); err != nil {
		s.logger.Debug("Rejected payment request", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayment, err)
	}

	now := s.now()
	qrCodeURL := req.QRCodeURL
	payment := &domain.Payment{
		ID:           util.GeneratePrefixedID("payment", now),
		UserID:       req.UserID,
		DisplayName:  req.DisplayName,
		SelectedDate: req.SelectedDate,
		Amount:       req.Amount,
		QRCodeURL:    &qrCodeURL,
		Status:       domain.PaymentStatusPending,
		CreatedAt:    now,
	}

	if err := s.paymentRepo.CreateTx(ctx, s.db, payment); err != nil {
		s.logger.Error("Failed to create payment", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.logger.Info("Payment generated",
		zap.String("payment_id", payment.ID),
		zap.String("user_id", payment.UserID),
		zap.Float64("amount", payment.Amount))
	return payment, nil
}

func (s *paymentService) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	payments, err := s.paymentRepo.ListTx(ctx, s.db)
	if err != nil {
		s.logger.Error("Failed to list payments", zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByIDTx(ctx, s.db, paymentID)
	if err != nil {
		if !errors.Is(err, domain.ErrPaymentNotFound) {
			s.logger.Error("Failed to get payment", zap.String("payment_id", paymentID), zap.Error(err))
		}
		return nil, err
	}
	return payment, nil
}

// Record persists the final state of a payment together with its
// payment.verified outbox message. A payment that is already success or
// failed is never overwritten; ErrPaymentAlreadyFinalized is returned instead.
func (s *paymentService) Record(ctx context.Context, paymentID string, declared domain.DeclaredPayment, slipURL *string, outcome domain.Outcome) (*domain.Payment, error) {
	now := s.now()
	payment, err := BuildVerifiedPayment(paymentID, declared, slipURL, outcome, now)
	if err != nil {
		s.logger.Error("Failed to build payment record", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, err
	}

	msg, err := outbox.NewPaymentVerifiedMessage(payment, s.eventsTopic, now)
	if err != nil {
		s.logger.Error("Failed to prepare outbox message", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction for payment record", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic while recording payment, rolling back", zap.String("payment_id", paymentID), zap.Any("panic", r))
			tx.Rollback()
			panic(r)
		}
	}()

	if err := s.recordTx(ctx, tx, payment, msg); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back payment record", zap.String("payment_id", paymentID), zap.Error(rbErr))
		}
		if errors.Is(err, domain.ErrPaymentAlreadyFinalized) {
			s.logExistingPayment(ctx, paymentID)
			return nil, err
		}
		s.logger.Error("Failed to record payment", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, fmt.Errorf("failed to record payment %s: %w", paymentID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit payment record", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("status", string(payment.Status)),
		zap.String("status_code", payment.StatusCode))
	return payment, nil
}

func (s *paymentService) recordTx(ctx context.Context, tx *sql.Tx, payment *domain.Payment, msg *domain.OutboxMessage) error {
	if err := s.paymentRepo.FinalizeTx(ctx, tx, payment); err != nil {
		return err
	}
	if err := s.outboxRepo.CreateMessageTx(ctx, tx, msg); err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

func (s *paymentService) logExistingPayment(ctx context.Context, paymentID string) {
	existing, err := s.paymentRepo.GetByIDTx(ctx, s.db, paymentID)
	if err != nil {
		s.logger.Warn("Payment already finalized", zap.String("payment_id", paymentID), zap.Error(err))
		return
	}
	s.logger.Warn("Payment already finalized, keeping existing record",
		zap.String("payment_id", paymentID),
		zap.String("status", string(existing.Status)),
		zap.String("status_code", existing.StatusCode))
}
