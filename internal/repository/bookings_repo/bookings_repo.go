package bookings_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"clipbooking/internal/domain"
)

const bookingColumns = `booking_id, payment_id, user_id, display_name, selected_date, amount, status, created_at`

const uniqueViolation = "23505"

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *bookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) CreateTx(ctx context.Context, querier domain.Querier, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var paymentID sql.NullString
	if booking.PaymentID != nil {
		paymentID = sql.NullString{String: *booking.PaymentID, Valid: true}
	}
	_, err := querier.ExecContext(ctx, query,
		booking.ID,
		paymentID,
		booking.UserID,
		booking.DisplayName,
		booking.SelectedDate,
		booking.Amount,
		string(booking.Status),
		booking.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("booking for %s: %w", booking.SelectedDate, domain.ErrBookingConflict)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_id = $1`
	booking, err := scanBooking(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking by id %s: %w", id, err)
	}
	return booking, nil
}

func (r *bookingRepository) ListTx(ctx context.Context, querier domain.Querier) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC`
	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return collectBookings(rows)
}

// UpdateTx applies only the fields present in patch.
func (r *bookingRepository) UpdateTx(ctx context.Context, querier domain.Querier, id string, patch domain.BookingPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return domain.ErrEmptyUpdate
	}

	columns := make([]string, 0, len(fields))
	for column := range fields {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, column := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, fields[column])
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE bookings SET %s WHERE booking_id = $%d`, strings.Join(assignments, ", "), len(args))
	res, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("booking %s: %w", id, domain.ErrBookingConflict)
		}
		return fmt.Errorf("failed to update booking %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for booking update: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *bookingRepository) DeleteTx(ctx context.Context, querier domain.Querier, id string) error {
	res, err := querier.ExecContext(ctx, `DELETE FROM bookings WHERE booking_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for booking delete: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *bookingRepository) ListPendingCreatedBeforeTx(ctx context.Context, querier domain.Querier, cutoff time.Time) ([]domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
	`
	rows, err := querier.QueryContext(ctx, query, string(domain.BookingStatusPending), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending bookings: %w", err)
	}
	return collectBookings(rows)
}

// DeletePendingTx deletes the booking only while it is still pending and
// reports whether a row was removed.
func (r *bookingRepository) DeletePendingTx(ctx context.Context, querier domain.Querier, id string) (bool, error) {
	res, err := querier.ExecContext(ctx,
		`DELETE FROM bookings WHERE booking_id = $1 AND status = $2`,
		id, string(domain.BookingStatusPending))
	if err != nil {
		return false, fmt.Errorf("failed to delete pending booking %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for pending booking delete: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *bookingRepository) ConfirmByPaymentIDTx(ctx context.Context, querier domain.Querier, paymentID string) (int64, error) {
	res, err := querier.ExecContext(ctx,
		`UPDATE bookings SET status = $1 WHERE payment_id = $2 AND status = $3`,
		string(domain.BookingStatusConfirmed), paymentID, string(domain.BookingStatusPending))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("confirming bookings for payment %s: %w", paymentID, domain.ErrBookingConflict)
		}
		return 0, fmt.Errorf("failed to confirm bookings for payment %s: %w", paymentID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for booking confirmation: %w", err)
	}
	return rowsAffected, nil
}

func collectBookings(rows *sql.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		booking   domain.Booking
		paymentID sql.NullString
	)
	err := row.Scan(
		&booking.ID,
		&paymentID,
		&booking.UserID,
		&booking.DisplayName,
		&booking.SelectedDate,
		&booking.Amount,
		&booking.Status,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentID.Valid {
		booking.PaymentID = &paymentID.String
	}
	return &booking, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
