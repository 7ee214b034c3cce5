package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clipbooking/internal/domain"
	"clipbooking/internal/repository/bookings_repo"
	"clipbooking/internal/util"
)

var ErrInvalidBooking = errors.New("invalid booking data")

type BookingService interface {
	Create(ctx context.Context, req *CreateBookingRequest) (*domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
	Update(ctx context.Context, id string, patch domain.BookingPatch) error
	Delete(ctx context.Context, id string) error
	ConfirmForPayment(ctx context.Context, paymentID string) (int64, error)
}

type bookingService struct {
	db          domain.Querier
	bookingRepo bookings_repo.BookingRepository
	now         func() time.Time
	logger      *zap.Logger
}

func NewBookingService(db domain.Querier, bookingRepo bookings_repo.BookingRepository, logger *zap.Logger) BookingService {
	return &bookingService{
		db:          db,
		bookingRepo: bookingRepo,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *bookingService) Create(ctx context.Context, req *CreateBookingRequest) (*domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBooking, err)
	}

	status := req.Status
	if status == "" {
		status = domain.BookingStatusPending
	}
	now := s.now()
	booking := &domain.Booking{
		ID:           util.GeneratePrefixedID("booking", now),
		PaymentID:    req.PaymentID,
		UserID:       req.UserID,
		DisplayName:  req.DisplayName,
		SelectedDate: req.SelectedDate,
		Amount:       req.Amount,
		Status:       status,
		CreatedAt:    now,
	}

	if err := s.bookingRepo.CreateTx(ctx, s.db, booking); err != nil {
		if errors.Is(err, domain.ErrBookingConflict) {
			s.logger.Info("Booking date already taken", zap.String("selected_date", req.SelectedDate))
			return nil, err
		}
		s.logger.Error("Failed to create booking", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.String("booking_id", booking.ID),
		zap.String("selected_date", booking.SelectedDate),
		zap.String("status", string(booking.Status)))
	return booking, nil
}

func (s *bookingService) List(ctx context.Context) ([]domain.Booking, error) {
	bookings, err := s.bookingRepo.ListTx(ctx, s.db)
	if err != nil {
		s.logger.Error("Failed to list bookings", zap.Error(err))
		return nil, err
	}
	return bookings, nil
}

// Update checks that the booking exists before looking at the patch, so an
// unknown id is reported even when nothing was sent.
func (s *bookingService) Update(ctx context.Context, id string, patch domain.BookingPatch) error {
	if _, err := s.bookingRepo.GetByIDTx(ctx, s.db, id); err != nil {
		return err
	}
	if patch.Empty() {
		return domain.ErrEmptyUpdate
	}
	if err := s.bookingRepo.UpdateTx(ctx, s.db, id, patch); err != nil {
		if !errors.Is(err, domain.ErrBookingConflict) && !errors.Is(err, domain.ErrBookingNotFound) {
			s.logger.Error("Failed to update booking", zap.String("booking_id", id), zap.Error(err))
		}
		return err
	}
	s.logger.Info("Booking updated", zap.String("booking_id", id), zap.Any("fields", patch.Fields()))
	return nil
}

func (s *bookingService) Delete(ctx context.Context, id string) error {
	if _, err := s.bookingRepo.GetByIDTx(ctx, s.db, id); err != nil {
		return err
	}
	if err := s.bookingRepo.DeleteTx(ctx, s.db, id); err != nil {
		if !errors.Is(err, domain.ErrBookingNotFound) {
			s.logger.Error("Failed to delete booking", zap.String("booking_id", id), zap.Error(err))
		}
		return err
	}
	s.logger.Info("Booking deleted", zap.String("booking_id", id))
	return nil
}

// ConfirmForPayment moves the pending bookings that reference paymentID to
// confirmed and returns how many changed.
func (s *bookingService) ConfirmForPayment(ctx context.Context, paymentID string) (int64, error) {
	confirmed, err := s.bookingRepo.ConfirmByPaymentIDTx(ctx, s.db, paymentID)
	if err != nil {
		s.logger.Error("Failed to confirm bookings for payment", zap.String("payment_id", paymentID), zap.Error(err))
		return 0, err
	}
	if confirmed == 0 {
		s.logger.Debug("No pending bookings reference payment", zap.String("payment_id", paymentID))
	} else {
		s.logger.Info("Bookings confirmed for payment", zap.String("payment_id", paymentID), zap.Int64("count", confirmed))
	}
	return confirmed, nil
}
