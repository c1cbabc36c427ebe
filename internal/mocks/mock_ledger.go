package mocks

import (
	"context"

	"github.com/moonkyuu/cinebook/internal/domain"
)

type MockLedger struct {
	domain.Ledger
	ClaimFunc    func(ctx context.Context, showtimeID string, seats []string, claimant string) (domain.ClaimResult, error)
	ClaimsOfFunc func(ctx context.Context, showtimeID, claimant string) ([]string, error)
	ReleaseFunc  func(ctx context.Context, showtimeID, claimant string) error
}

func (m *MockLedger) Claim(
	ctx context.Context,
	showtimeID string,
	seats []string,
	claimant string) (domain.ClaimResult, error) {

	return m.ClaimFunc(ctx, showtimeID, seats, claimant)
}

func (m *MockLedger) ClaimsOf(ctx context.Context, showtimeID, claimant string) ([]string, error) {
	return m.ClaimsOfFunc(ctx, showtimeID, claimant)
}

func (m *MockLedger) Release(ctx context.Context, showtimeID, claimant string) error {
	return m.ReleaseFunc(ctx, showtimeID, claimant)
}

type MockCatalog struct {
	domain.ShowCatalog
	GetShowFunc func(ctx context.Context, id string) (*domain.Show, error)
}

func (m *MockCatalog) GetShow(ctx context.Context, id string) (*domain.Show, error) {
	return m.GetShowFunc(ctx, id)
}
