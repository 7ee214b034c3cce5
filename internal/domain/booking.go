package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
)

type Booking struct {
	ID           string        `json:"booking_id"`
	PaymentID    *string       `json:"payment_id"`
	UserID       string        `json:"user_id"`
	DisplayName  string        `json:"display_name"`
	SelectedDate string        `json:"selected_date"`
	Amount       float64       `json:"amount"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// BookingPatch carries a partial update; nil fields are left untouched.
type BookingPatch struct {
	UserID       *string
	DisplayName  *string
	SelectedDate *string
	Amount       *float64
	Status       *BookingStatus
	PaymentID    *string
}

func (p BookingPatch) Empty() bool {
	return p.UserID == nil && p.DisplayName == nil && p.SelectedDate == nil &&
		p.Amount == nil && p.Status == nil && p.PaymentID == nil
}

// Fields returns the provided fields keyed by column name.
func (p BookingPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.UserID != nil {
		fields["user_id"] = *p.UserID
	}
	if p.DisplayName != nil {
		fields["display_name"] = *p.DisplayName
	}
	if p.SelectedDate != nil {
		fields["selected_date"] = *p.SelectedDate
	}
	if p.Amount != nil {
		fields["amount"] = *p.Amount
	}
	if p.Status != nil {
		fields["status"] = string(*p.Status)
	}
	if p.PaymentID != nil {
		fields["payment_id"] = *p.PaymentID
	}
	return fields
}
