package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clipbooking/internal/domain"
	kafkaInfra "clipbooking/internal/infrastructure/kafka"
)

const batchSize = 10

type OutboxRepository interface {
	GetPendingMessages(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxMessage, error)
	UpdateMessageStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.OutboxMessageStatus) error
	MarkMessagesAsFailed(ctx context.Context, querier domain.Querier, ids []string) error
}

// Processor relays pending outbox messages to Kafka.
type Processor struct {
	db            *sql.DB
	outboxRepo    OutboxRepository
	kafkaProducer kafkaInfra.Producer
	pollInterval  time.Duration
	pollTimeout   time.Duration
	logger        *zap.Logger

	shutdownSignal chan struct{}
	shutdownOnce   sync.Once
	started        atomic.Bool
	done           chan struct{}
}

func NewProcessor(
	db *sql.DB,
	outboxRepo OutboxRepository,
	kafkaProducer kafkaInfra.Producer,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:             db,
		outboxRepo:     outboxRepo,
		kafkaProducer:  kafkaProducer,
		pollInterval:   pollInterval,
		pollTimeout:    pollTimeout,
		logger:         logger,
		shutdownSignal: make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (p *Processor) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.logger.Info("Starting outbox processor", zap.Duration("poll_interval", p.pollInterval))
	ticker := time.NewTicker(p.pollInterval)

	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.logger.Info("Outbox processor context cancelled")
				return
			case <-p.shutdownSignal:
				p.logger.Info("Outbox processor received stop signal")
				return
			case <-ticker.C:
				if err := p.processOutboxMessages(ctx); err != nil {
					p.logger.Error("Outbox batch failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop signals the polling loop and waits for the batch in flight to finish.
func (p *Processor) Stop() {
	p.shutdownOnce.Do(func() {
		p.logger.Info("Signaling outbox processor to stop...")
		close(p.shutdownSignal)
	})
	if p.started.Load() {
		<-p.done
	}
	p.logger.Info("Outbox processor stopped")
}

func (p *Processor) processOutboxMessages(ctx context.Context) error {
	pollCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	tx, err := p.db.BeginTx(pollCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin outbox transaction: %w", err)
	}
	defer tx.Rollback()

	messages, err := p.outboxRepo.GetPendingMessages(pollCtx, tx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}
	p.logger.Debug("Found pending outbox messages", zap.Int("count", len(messages)))

	var failed []string
	for _, msg := range messages {
		if msg.Topic == "" || len(msg.Payload) == 0 {
			p.logger.Warn("Outbox message has no topic or payload, marking as failed", zap.String("message_id", msg.ID))
			failed = append(failed, msg.ID)
			continue
		}

		// Produce uses the parent context; the poll timeout only bounds the database work.
		if err := p.kafkaProducer.Produce(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			p.logger.Error("Failed to send message to Kafka, will retry",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Error(err))
			break
		}

		if err := p.outboxRepo.UpdateMessageStatusTx(pollCtx, tx, msg.ID, domain.OutboxStatusSent); err != nil {
			return fmt.Errorf("failed to mark outbox message %s as sent: %w", msg.ID, err)
		}
		p.logger.Info("Outbox message sent",
			zap.String("message_id", msg.ID),
			zap.String("message_type", msg.MessageType),
			zap.String("aggregate_id", msg.AggregateID))
	}

	if len(failed) > 0 {
		if err := p.outboxRepo.MarkMessagesAsFailed(pollCtx, tx, failed); err != nil {
			return fmt.Errorf("failed to mark outbox messages as failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outbox transaction: %w", err)
	}
	return nil
}
