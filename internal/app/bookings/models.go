package bookings

import (
	"errors"

	"clipbooking/internal/domain"
)

type CreateBookingRequest struct {
	UserID       string               `json:"user_id"`
	DisplayName  string               `json:"display_name"`
	SelectedDate string               `json:"selected_date"`
	Amount       float64              `json:"amount"`
	Status       domain.BookingStatus `json:"status"`
	PaymentID    *string              `json:"payment_id,omitempty"`
}

func (r CreateBookingRequest) Validate() error {
	switch {
	case r.UserID == "":
		return errors.New("user_id is required")
	case r.DisplayName == "":
		return errors.New("display_name is required")
	case r.SelectedDate == "":
		return errors.New("selected_date is required")
	case r.Amount < 0:
		return errors.New("amount must not be negative")
	}
	switch r.Status {
	case "", domain.BookingStatusPending, domain.BookingStatusConfirmed:
		return nil
	}
	return errors.New("status must be pending or confirmed")
}
