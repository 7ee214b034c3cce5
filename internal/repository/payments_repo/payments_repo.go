package payments_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"clipbooking/internal/domain"
)

const paymentColumns = `payment_id, user_id, display_name, selected_date, amount, qr_code_url, tran_ref, slip_url,
	status, status_code, response, metadata, created_at, paid_at`

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreateTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (payment_id, user_id, display_name, selected_date, amount, qr_code_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := querier.ExecContext(ctx, query,
		payment.ID,
		payment.UserID,
		payment.DisplayName,
		payment.SelectedDate,
		payment.Amount,
		nullString(payment.QRCodeURL),
		string(payment.Status),
		payment.CreatedAt,
	)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("payment with id %s already exists: %w", payment.ID, domain.ErrPaymentAlreadyFinalized)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// FinalizeTx writes the verified state of a payment. A missing row is
// inserted and a pending row is overwritten; a row that already left pending
// is left untouched and ErrPaymentAlreadyFinalized is returned.
func (r *paymentRepository) FinalizeTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (payment_id, user_id, display_name, selected_date, amount, tran_ref, slip_url,
			status, status_code, response, metadata, created_at, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13)
		ON CONFLICT (payment_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			display_name = EXCLUDED.display_name,
			selected_date = EXCLUDED.selected_date,
			amount = EXCLUDED.amount,
			tran_ref = EXCLUDED.tran_ref,
			slip_url = EXCLUDED.slip_url,
			status = EXCLUDED.status,
			status_code = EXCLUDED.status_code,
			response = EXCLUDED.response,
			metadata = EXCLUDED.metadata,
			paid_at = EXCLUDED.paid_at
		WHERE payments.status = 'pending'
		RETURNING created_at, qr_code_url
	`
	var qrCodeURL sql.NullString
	err := querier.QueryRowContext(ctx, query,
		payment.ID,
		payment.UserID,
		payment.DisplayName,
		payment.SelectedDate,
		payment.Amount,
		nullString(payment.TranRef),
		nullString(payment.SlipURL),
		string(payment.Status),
		payment.StatusCode,
		payment.Response,
		nullJSON(payment.Metadata),
		payment.CreatedAt,
		nullTime(payment.PaidAt),
	).Scan(&payment.CreatedAt, &qrCodeURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("payment %s: %w", payment.ID, domain.ErrPaymentAlreadyFinalized)
		}
		return fmt.Errorf("failed to finalize payment %s: %w", payment.ID, err)
	}
	if qrCodeURL.Valid {
		payment.QRCodeURL = &qrCodeURL.String
	}
	return nil
}

func (r *paymentRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1`
	payment, err := scanPayment(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by id %s: %w", id, err)
	}
	return payment, nil
}

func (r *paymentRepository) ListTx(ctx context.Context, querier domain.Querier) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC`
	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		payment                     domain.Payment
		qrCodeURL, tranRef, slipURL sql.NullString
		statusCode, response        sql.NullString
		metadata                    []byte
		paidAt                      sql.NullTime
	)
	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.DisplayName,
		&payment.SelectedDate,
		&payment.Amount,
		&qrCodeURL,
		&tranRef,
		&slipURL,
		&payment.Status,
		&statusCode,
		&response,
		&metadata,
		&payment.CreatedAt,
		&paidAt,
	)
	if err != nil {
		return nil, err
	}
	payment.QRCodeURL = stringPtr(qrCodeURL)
	payment.TranRef = stringPtr(tranRef)
	payment.SlipURL = stringPtr(slipURL)
	payment.StatusCode = statusCode.String
	payment.Response = response.String
	if len(metadata) > 0 {
		payment.Metadata = metadata
	}
	if paidAt.Valid {
		payment.PaidAt = &paidAt.Time
	}
	return &payment, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullJSON(raw []byte) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
