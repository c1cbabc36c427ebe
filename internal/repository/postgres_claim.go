package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moonkyuu/cinebook/internal/domain"
)

// PostgresClaimRepository stores one row per active seat claim. The primary
// key on (showtime_id, seat_label) is what enforces mutual exclusion: a claim
// is one transaction whose conditional insert fails atomically when any target
// seat is already occupied. There is no separate pre-check, so there is no
// check-then-act window.
type PostgresClaimRepository struct {
	db *pgxpool.Pool
}

func NewPostgresClaimRepository(db *pgxpool.Pool) *PostgresClaimRepository {
	return &PostgresClaimRepository{
		db: db,
	}
}

func (p *PostgresClaimRepository) QueryReserved(ctx context.Context, showtimeID string) ([]string, error) {
	query := `
		SELECT seat_label
		FROM seat_claims
		WHERE showtime_id = $1
		ORDER BY seat_label
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("query reserved seats: %w", err)
	}
	defer rows.Close()

	return scanSeatLabels(rows)
}

// maxClaimRounds bounds the insert/resolve loop inside a claim transaction.
// Every extra round requires another concurrent release to have committed
// mid-claim, so the bound is never reached in practice.
const maxClaimRounds = 3

// Claim atomically acquires all requested seats or none. Seats already held by
// the same claimant count as acquired, so a retried claim is idempotent.
func (p *PostgresClaimRepository) Claim(
	ctx context.Context,
	showtimeID string,
	seats []string,
	claimant string) (domain.ClaimResult, error) {

	var result domain.ClaimResult

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		// Seats not acquired yet. A seat skipped by the insert must be proven
		// either ours (idempotent re-claim) or foreign (conflict); a seat that
		// is neither was vacated by a concurrent release after the insert took
		// its snapshot, and only re-running the insert acquires it. Accepting
		// on the absence of foreign claims alone would report success with no
		// rows written.
		pending := seats

		for round := 0; round < maxClaimRounds; round++ {
			// Concurrent claims for an overlapping seat race on the primary
			// key: the first insert to commit wins, the loser's ON CONFLICT
			// skips the row and the whole transaction rolls back below.
			query := `
				INSERT INTO seat_claims (showtime_id, seat_label, claimant)
				SELECT $1, unnest($2::text[]), $3
				ON CONFLICT (showtime_id, seat_label) DO NOTHING
				RETURNING seat_label
			`

			rows, err := tx.Query(ctx, query, showtimeID, pending, claimant)
			if err != nil {
				return fmt.Errorf("insert seat claims: %w", err)
			}

			inserted, err := scanSeatLabels(rows)
			if err != nil {
				return err
			}

			pending = subtractSeats(pending, inserted)
			if len(pending) == 0 {
				result.Accepted = true
				return nil
			}

			query = `
				SELECT seat_label
				FROM seat_claims
				WHERE showtime_id = $1 AND seat_label = ANY($2::text[]) AND claimant <> $3
				ORDER BY seat_label
			`

			rows, err = tx.Query(ctx, query, showtimeID, pending, claimant)
			if err != nil {
				return fmt.Errorf("resolve conflicting claims: %w", err)
			}

			conflicting, err := scanSeatLabels(rows)
			if err != nil {
				return err
			}

			if len(conflicting) > 0 {
				result.Conflicting = conflicting

				// Roll back so the partial inserts never become visible.
				return domain.ErrSeatAlreadyClaimed
			}

			query = `
				SELECT seat_label
				FROM seat_claims
				WHERE showtime_id = $1 AND seat_label = ANY($2::text[]) AND claimant = $3
			`

			rows, err = tx.Query(ctx, query, showtimeID, pending, claimant)
			if err != nil {
				return fmt.Errorf("resolve own claims: %w", err)
			}

			held, err := scanSeatLabels(rows)
			if err != nil {
				return err
			}

			pending = subtractSeats(pending, held)
			if len(pending) == 0 {
				result.Accepted = true
				return nil
			}
			// Seats left in pending belong to nobody anymore; insert again.
		}

		return fmt.Errorf("claim of %d seat(s) did not settle after %d rounds", len(seats), maxClaimRounds)
	})

	if err != nil {
		if errors.Is(err, domain.ErrSeatAlreadyClaimed) {
			return result, nil
		}
		return domain.ClaimResult{}, err
	}

	return result, nil
}

func (p *PostgresClaimRepository) ClaimsOf(ctx context.Context, showtimeID, claimant string) ([]string, error) {
	query := `
		SELECT seat_label
		FROM seat_claims
		WHERE showtime_id = $1 AND claimant = $2
		ORDER BY seat_label
	`

	rows, err := p.db.Query(ctx, query, showtimeID, claimant)
	if err != nil {
		return nil, fmt.Errorf("query claims of claimant: %w", err)
	}
	defer rows.Close()

	return scanSeatLabels(rows)
}

func (p *PostgresClaimRepository) Release(ctx context.Context, showtimeID, claimant string) error {
	query := `
		DELETE FROM seat_claims
		WHERE showtime_id = $1 AND claimant = $2
	`

	// Releasing with no matching claims is a no-op, not an error.
	_, err := p.db.Exec(ctx, query, showtimeID, claimant)
	if err != nil {
		return fmt.Errorf("release seat claims: %w", err)
	}

	return nil
}

func subtractSeats(seats, remove []string) []string {
	if len(remove) == 0 {
		return seats
	}

	removed := make(map[string]bool, len(remove))
	for _, seat := range remove {
		removed[seat] = true
	}

	remaining := make([]string, 0, len(seats)-len(remove))
	for _, seat := range seats {
		if !removed[seat] {
			remaining = append(remaining, seat)
		}
	}

	return remaining
}

func scanSeatLabels(rows pgx.Rows) ([]string, error) {
	defer rows.Close()

	seats := make([]string, 0)

	for rows.Next() {
		var seat string

		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
