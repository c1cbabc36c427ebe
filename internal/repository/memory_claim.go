package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moonkyuu/cinebook/internal/domain"
)

// MemoryClaimStore is an in-process Seat Ledger with the same contract as the
// Postgres repository. Claims are scoped per show: each show carries its own
// mutex, so claims against unrelated shows never contend. Used for tests and
// DSN-less dev runs; claims do not survive a restart.
type MemoryClaimStore struct {
	mu    sync.Mutex
	shows map[string]*showClaims
}

type showClaims struct {
	mu     sync.Mutex
	claims map[string]domain.SeatClaim
}

func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{
		shows: make(map[string]*showClaims),
	}
}

func (m *MemoryClaimStore) showClaims(showtimeID string) *showClaims {
	m.mu.Lock()
	defer m.mu.Unlock()

	sc, ok := m.shows[showtimeID]
	if !ok {
		sc = &showClaims{claims: make(map[string]domain.SeatClaim)}
		m.shows[showtimeID] = sc
	}

	return sc
}

func (m *MemoryClaimStore) QueryReserved(ctx context.Context, showtimeID string) ([]string, error) {
	sc := m.showClaims(showtimeID)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	seats := make([]string, 0, len(sc.claims))
	for seat := range sc.claims {
		seats = append(seats, seat)
	}
	sort.Strings(seats)

	return seats, nil
}

// Claim evaluates the entire requested set under the show's mutex: either
// every seat is acquired or none is, and the conflicting subset is reported
// exactly.
func (m *MemoryClaimStore) Claim(
	ctx context.Context,
	showtimeID string,
	seats []string,
	claimant string) (domain.ClaimResult, error) {

	sc := m.showClaims(showtimeID)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	var conflicting []string
	for _, seat := range seats {
		if claim, ok := sc.claims[seat]; ok && claim.Claimant != claimant {
			conflicting = append(conflicting, seat)
		}
	}

	if len(conflicting) > 0 {
		sort.Strings(conflicting)
		return domain.ClaimResult{Conflicting: conflicting}, nil
	}

	now := time.Now()
	for _, seat := range seats {
		if _, ok := sc.claims[seat]; ok {
			continue // idempotent re-claim by the same claimant
		}
		sc.claims[seat] = domain.SeatClaim{
			ShowtimeID: showtimeID,
			SeatLabel:  seat,
			Claimant:   claimant,
			CreatedAt:  now,
		}
	}

	return domain.ClaimResult{Accepted: true}, nil
}

func (m *MemoryClaimStore) ClaimsOf(ctx context.Context, showtimeID, claimant string) ([]string, error) {
	sc := m.showClaims(showtimeID)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	seats := make([]string, 0)
	for seat, claim := range sc.claims {
		if claim.Claimant == claimant {
			seats = append(seats, seat)
		}
	}
	sort.Strings(seats)

	return seats, nil
}

func (m *MemoryClaimStore) Release(ctx context.Context, showtimeID, claimant string) error {
	sc := m.showClaims(showtimeID)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	for seat, claim := range sc.claims {
		if claim.Claimant == claimant {
			delete(sc.claims, seat)
		}
	}

	return nil
}
