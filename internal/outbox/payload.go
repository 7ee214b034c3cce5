package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"clipbooking/internal/domain"
	"clipbooking/internal/util"
)

// NewPaymentVerifiedMessage builds the pending outbox row announcing that a
// slip submission for payment has been recorded.
func NewPaymentVerifiedMessage(payment *domain.Payment, topic string, now time.Time) (*domain.OutboxMessage, error) {
	payload, err := PreparePaymentVerifiedPayload(payment, now)
	if err != nil {
		return nil, err
	}
	return &domain.OutboxMessage{
		ID:            util.GenerateUUID(),
		AggregateID:   payment.ID,
		AggregateType: domain.AggregateTypePayment,
		MessageType:   domain.MessageTypePaymentVerified,
		Topic:         topic,
		Key:           payment.ID,
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     now,
	}, nil
}

func PreparePaymentVerifiedPayload(payment *domain.Payment, eventTime time.Time) ([]byte, error) {
	event := domain.PaymentVerifiedEvent{
		PaymentID:    payment.ID,
		UserID:       payment.UserID,
		SelectedDate: payment.SelectedDate,
		Amount:       payment.Amount,
		Status:       string(payment.Status),
		StatusCode:   payment.StatusCode,
		PaidAt:       payment.PaidAt,
		Timestamp:    eventTime,
	}
	if payment.TranRef != nil {
		event.TranRef = *payment.TranRef
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment verified event: %w", err)
	}
	return payload, nil
}
