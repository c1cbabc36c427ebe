package mocks

import (
	"context"

	"github.com/moonkyuu/cinebook/internal/domain"
)

type MockClaimRepo struct {
	domain.ClaimRepository
	QueryReservedFunc func(ctx context.Context, showtimeID string) ([]string, error)
	ClaimFunc         func(ctx context.Context, showtimeID string, seats []string, claimant string) (domain.ClaimResult, error)
	ClaimsOfFunc      func(ctx context.Context, showtimeID, claimant string) ([]string, error)
	ReleaseFunc       func(ctx context.Context, showtimeID, claimant string) error
}

func (m *MockClaimRepo) QueryReserved(ctx context.Context, showtimeID string) ([]string, error) {
	return m.QueryReservedFunc(ctx, showtimeID)
}

func (m *MockClaimRepo) Claim(
	ctx context.Context,
	showtimeID string,
	seats []string,
	claimant string) (domain.ClaimResult, error) {

	return m.ClaimFunc(ctx, showtimeID, seats, claimant)
}

func (m *MockClaimRepo) ClaimsOf(ctx context.Context, showtimeID, claimant string) ([]string, error) {
	return m.ClaimsOfFunc(ctx, showtimeID, claimant)
}

func (m *MockClaimRepo) Release(ctx context.Context, showtimeID, claimant string) error {
	return m.ReleaseFunc(ctx, showtimeID, claimant)
}
