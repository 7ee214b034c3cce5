package domain

import (
	"encoding/json"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

type Payment struct {
	ID           string          `json:"payment_id"`
	UserID       string          `json:"user_id"`
	DisplayName  string          `json:"display_name"`
	SelectedDate string          `json:"selected_date"`
	Amount       float64         `json:"amount"`
	QRCodeURL    *string         `json:"qr_code_url,omitempty"`
	TranRef      *string         `json:"tran_ref,omitempty"`
	SlipURL      *string         `json:"slip_url,omitempty"`
	Status       PaymentStatus   `json:"status"`
	StatusCode   string          `json:"status_code,omitempty"`
	Response     string          `json:"response,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
}

// DeclaredPayment holds the payer-asserted fields sent alongside a slip.
type DeclaredPayment struct {
	UserID       string
	DisplayName  string
	SelectedDate string
	Amount       float64
}
