package kafka_infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	fetchTimeout        = 5 * time.Second
	handleTimeout       = 25 * time.Second
	commitTimeout       = 5 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
)

type MessageHandler func(ctx context.Context, message kafka.Message) error

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer delivers messages to a handler one at a time. A message that the
// handler rejects is retried in place: the reader does not move on and its
// offset is not committed until the handler accepts it.
type Consumer struct {
	reader       messageReader
	topic        string
	groupID      string
	handler      MessageHandler
	retryBackoff time.Duration
	maxBackoff   time.Duration
	logger       *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler MessageHandler, l *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		Logger:         kafka.LoggerFunc(l.Sugar().Debugf),
		ErrorLogger:    kafka.LoggerFunc(l.Sugar().Errorf),
	})
	return newConsumer(reader, topic, groupID, handler, l)
}

func newConsumer(reader messageReader, topic, groupID string, handler MessageHandler, l *zap.Logger) *Consumer {
	return &Consumer{
		reader:       reader,
		topic:        topic,
		groupID:      groupID,
		handler:      handler,
		retryBackoff: defaultRetryBackoff,
		maxBackoff:   defaultMaxBackoff,
		logger:       l.With(zap.String("topic", topic), zap.String("group_id", groupID)),
	}
}

// Consume fetches messages until ctx is cancelled or the reader is closed.
func (c *Consumer) Consume(ctx context.Context) error {
	c.logger.Info("Kafka consumer starting message consumption")

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("Context cancelled, stopping consumer")
			return err
		}

		fetchCtx, cancelFetch := context.WithTimeout(ctx, fetchTimeout)
		m, err := c.reader.FetchMessage(fetchCtx)
		cancelFetch()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, kafka.ErrGroupClosed) || errors.Is(err, io.EOF) {
				c.logger.Info("Consumer stopping", zap.Error(err))
				return nil
			}
			c.logger.Error("Error fetching message from Kafka", zap.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}

		if err := c.handleUntilAccepted(ctx, m); err != nil {
			// Shutting down; the offset stays uncommitted so the message is
			// delivered again after a restart.
			c.logger.Warn("Consumer stopped before message was handled",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
			return nil
		}

		c.commit(m)
	}
}

// handleUntilAccepted runs the handler with growing backoff until it returns
// nil. It only gives up when ctx is done.
func (c *Consumer) handleUntilAccepted(ctx context.Context, m kafka.Message) error {
	backoff := c.retryBackoff
	for attempt := 1; ; attempt++ {
		// A handler already running finishes even if shutdown starts.
		handleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handleTimeout)
		err := c.handler(handleCtx, m)
		cancel()
		if err == nil {
			if attempt > 1 {
				c.logger.Info("Kafka message handled after retry",
					zap.Int("partition", m.Partition),
					zap.Int64("offset", m.Offset),
					zap.Int("attempt", attempt))
			}
			return nil
		}

		c.logger.Error("Error handling Kafka message, will retry",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

func (c *Consumer) commit(m kafka.Message) {
	commitCtx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if err := c.reader.CommitMessages(commitCtx, m); err != nil {
		c.logger.Error("Failed to commit offset for message",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err))
	}
}

func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka consumer reader", zap.Error(err))
		return fmt.Errorf("failed to close Kafka consumer reader: %w", err)
	}
	c.logger.Info("Kafka consumer reader closed")
	return nil
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
