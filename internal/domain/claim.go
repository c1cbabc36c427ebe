package domain

import (
	"context"
	"time"
)

// SeatClaim is an exclusive, durable hold on one seat of one show, attributed
// to the booking that owns it. For a given (show, seat) pair at most one
// active claim exists at any time; the claim rows are the sole source of
// truth for "is this seat taken".
type SeatClaim struct {
	ShowtimeID string
	SeatLabel  string
	Claimant   string
	CreatedAt  time.Time
}

// ClaimResult is the outcome of an atomic multi-seat claim. When Accepted is
// false, Conflicting holds exactly the requested seats that already carry a
// claim by a different claimant.
type ClaimResult struct {
	Accepted    bool
	Conflicting []string
}

// ClaimRepository is the Seat Ledger's storage contract. Claim must treat the
// seat set as an all-or-nothing unit: no partial claim may ever become visible
// to other callers. A claim repeated by the claimant that already holds every
// requested seat is Accepted, so ambiguous-outcome retries stay safe.
type ClaimRepository interface {
	QueryReserved(ctx context.Context, showtimeID string) ([]string, error)
	Claim(ctx context.Context, showtimeID string, seats []string, claimant string) (ClaimResult, error)
	ClaimsOf(ctx context.Context, showtimeID, claimant string) ([]string, error)
	Release(ctx context.Context, showtimeID, claimant string) error
}

// Ledger is the claim surface the Booking Coordinator talks to, usually over
// HTTP. It mirrors ClaimRepository minus the read used only by the seat map.
type Ledger interface {
	Claim(ctx context.Context, showtimeID string, seats []string, claimant string) (ClaimResult, error)
	ClaimsOf(ctx context.Context, showtimeID, claimant string) ([]string, error)
	Release(ctx context.Context, showtimeID, claimant string) error
}

// ShowCatalog resolves shows from the Coordinator's side. Read-only.
type ShowCatalog interface {
	GetShow(ctx context.Context, id string) (*Show, error)
}
