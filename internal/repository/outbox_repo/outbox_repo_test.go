package outbox_repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipbooking/internal/domain"
)

type execResult int64

func (r execResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r execResult) RowsAffected() (int64, error) { return int64(r), nil }

type execQuerier struct {
	args     []any
	affected int64
}

func (q *execQuerier) ExecContext(_ context.Context, _ string, args ...any) (sql.Result, error) {
	q.args = args
	return execResult(q.affected), nil
}

func (q *execQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (q *execQuerier) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func TestCreateMessageTx_BindsPayloadAsText(t *testing.T) {
	repo := NewOutboxRepository(nil)
	q := &execQuerier{affected: 1}
	msg := &domain.OutboxMessage{
		ID:            "m1",
		AggregateID:   "payment_1",
		AggregateType: domain.AggregateTypePayment,
		MessageType:   domain.MessageTypePaymentVerified,
		Topic:         "payment_verification_events",
		Key:           "payment_1",
		Payload:       []byte(`{"payment_id":"payment_1"}`),
		Status:        domain.OutboxStatusPending,
		CreatedAt:     time.Unix(1718000000, 0),
	}

	require.NoError(t, repo.CreateMessageTx(context.Background(), q, msg))
	require.Len(t, q.args, 9)
	assert.Equal(t, `{"payment_id":"payment_1"}`, q.args[6])
	assert.Equal(t, "PENDING", q.args[7])
}

func TestUpdateMessageStatusTx(t *testing.T) {
	repo := NewOutboxRepository(nil)

	q := &execQuerier{affected: 1}
	require.NoError(t, repo.UpdateMessageStatusTx(context.Background(), q, "m1", domain.OutboxStatusSent))
	sentAt, ok := q.args[1].(sql.NullTime)
	require.True(t, ok)
	assert.True(t, sentAt.Valid)

	q = &execQuerier{affected: 0}
	assert.Error(t, repo.UpdateMessageStatusTx(context.Background(), q, "missing", domain.OutboxStatusSent))
}

func TestMarkMessagesAsFailed(t *testing.T) {
	repo := NewOutboxRepository(nil)

	q := &execQuerier{}
	require.NoError(t, repo.MarkMessagesAsFailed(context.Background(), q, nil))
	assert.Nil(t, q.args, "no statement for an empty batch")

	q = &execQuerier{affected: 2}
	require.NoError(t, repo.MarkMessagesAsFailed(context.Background(), q, []string{"m1", "m2"}))
	assert.Equal(t, "FAILED", q.args[0])
	assert.Equal(t, pq.Array([]string{"m1", "m2"}), q.args[1])

	q = &execQuerier{affected: 1}
	assert.Error(t, repo.MarkMessagesAsFailed(context.Background(), q, []string{"m1", "m2"}))
}
