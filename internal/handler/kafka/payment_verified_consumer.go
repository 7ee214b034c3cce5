package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"clipbooking/internal/domain"
	kafka_infra "clipbooking/internal/infrastructure/kafka"
)

type BookingConfirmer interface {
	ConfirmForPayment(ctx context.Context, paymentID string) (int64, error)
}

// PaymentVerifiedMessageHandler confirms the bookings of payments whose slip
// was verified. Failed payments leave their bookings pending for the sweeper.
func PaymentVerifiedMessageHandler(bookings BookingConfirmer, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		logger.Debug("Received payment verified message",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.String("key", string(msg.Key)),
		)

		var event domain.PaymentVerifiedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil || event.PaymentID == "" {
			logger.Error("Skipping malformed payment verified message",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}

		if event.Status != string(domain.PaymentStatusSuccess) {
			logger.Info("Payment not successful, bookings left pending",
				zap.String("payment_id", event.PaymentID),
				zap.String("status", event.Status),
				zap.String("status_code", event.StatusCode),
			)
			return nil
		}

		confirmed, err := bookings.ConfirmForPayment(ctx, event.PaymentID)
		if err != nil {
			return fmt.Errorf("failed to confirm bookings for payment %s: %w", event.PaymentID, err)
		}

		logger.Info("Processed payment verified event",
			zap.String("payment_id", event.PaymentID),
			zap.Int64("bookings_confirmed", confirmed),
		)
		return nil
	}
}
