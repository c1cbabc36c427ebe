package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moonkyuu/cinebook/internal/domain"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking domain.Booking) error {
	query := `
		INSERT INTO bookings (id, showtime_id, user_id, seats, status, fail_reason, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.db.Exec(
		ctx,
		query,
		booking.ID,
		booking.ShowtimeID,
		booking.UserID,
		booking.Seats,
		booking.Status,
		booking.FailReason,
		booking.IdempotencyKey,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

func (p *PostgresBookingRepository) GetById(ctx context.Context, id string) (*domain.Booking, error) {
	query := `
		SELECT id, showtime_id, user_id, seats, status, fail_reason, idempotency_key, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	booking, err := p.scanBooking(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}

	return booking, nil
}

func (p *PostgresBookingRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	query := `
		SELECT id, showtime_id, user_id, seats, status, fail_reason, idempotency_key, created_at, updated_at
		FROM bookings
		WHERE idempotency_key = $1
	`

	booking, err := p.scanBooking(p.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find booking by idempotency key: %w", err)
	}

	return booking, nil
}

func (p *PostgresBookingRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.BookingStatus,
	failReason string) error {

	query := `
		UPDATE bookings
		SET status = $2, fail_reason = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := p.db.Exec(ctx, query, id, status, failReason)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresBookingRepository) List(
	ctx context.Context,
	pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			id, showtime_id, user_id, seats, status, fail_reason, idempotency_key, created_at, updated_at
		FROM bookings
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := p.db.Query(ctx, query, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	totalRecords := 0

	for rows.Next() {
		var booking domain.Booking

		err := rows.Scan(
			&totalRecords,
			&booking.ID,
			&booking.ShowtimeID,
			&booking.UserID,
			&booking.Seats,
			&booking.Status,
			&booking.FailReason,
			&booking.IdempotencyKey,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return bookings, metadata, nil
}

func (p *PostgresBookingRepository) ListPendingBefore(
	ctx context.Context,
	cutoff time.Time) ([]domain.Booking, error) {

	query := `
		SELECT id, showtime_id, user_id, seats, status, fail_reason, idempotency_key, created_at, updated_at
		FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
	`

	rows, err := p.db.Query(ctx, query, domain.BookingStatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list pending bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)

	for rows.Next() {
		var booking domain.Booking

		err := rows.Scan(
			&booking.ID,
			&booking.ShowtimeID,
			&booking.UserID,
			&booking.Seats,
			&booking.Status,
			&booking.FailReason,
			&booking.IdempotencyKey,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (p *PostgresBookingRepository) scanBooking(row pgx.Row) (*domain.Booking, error) {
	var booking domain.Booking

	err := row.Scan(
		&booking.ID,
		&booking.ShowtimeID,
		&booking.UserID,
		&booking.Seats,
		&booking.Status,
		&booking.FailReason,
		&booking.IdempotencyKey,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
