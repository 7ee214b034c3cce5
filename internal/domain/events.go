package domain

import "time"

const (
	AggregateTypePayment       = "payment"
	MessageTypePaymentVerified = "payment.verified"
)

// PaymentVerifiedEvent is published once a slip submission has been recorded.
type PaymentVerifiedEvent struct {
	PaymentID    string     `json:"payment_id"`
	UserID       string     `json:"user_id"`
	SelectedDate string     `json:"selected_date"`
	Amount       float64    `json:"amount"`
	Status       string     `json:"status"`
	StatusCode   string     `json:"status_code"`
	TranRef      string     `json:"tran_ref,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}
