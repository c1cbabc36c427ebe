// Package migrate applies each service's embedded schema at startup. The
// statements are idempotent, so running them on every boot is safe.
package migrate

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed showtime_schema.sql
var showtimeSchema string

//go:embed booking_schema.sql
var bookingSchema string

func ShowtimeSchema(ctx context.Context, db *pgxpool.Pool) error {
	return run(ctx, db, showtimeSchema)
}

func BookingSchema(ctx context.Context, db *pgxpool.Pool) error {
	return run(ctx, db, bookingSchema)
}

func run(ctx context.Context, db *pgxpool.Pool, schema string) error {
	_, err := db.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}
