package mocks

import (
	"context"

	"github.com/moonkyuu/cinebook/internal/domain"
)

type MockShowRepo struct {
	domain.ShowRepository
	GetByIdFunc func(ctx context.Context, id string) (*domain.Show, error)
	ListFunc    func(ctx context.Context) ([]domain.Show, error)
}

func (m *MockShowRepo) GetById(ctx context.Context, id string) (*domain.Show, error) {
	return m.GetByIdFunc(ctx, id)
}

func (m *MockShowRepo) List(ctx context.Context) ([]domain.Show, error) {
	return m.ListFunc(ctx)
}
