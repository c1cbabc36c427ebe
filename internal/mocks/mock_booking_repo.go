package mocks

import (
	"context"
	"time"

	"github.com/moonkyuu/cinebook/internal/domain"
)

type MockBookingRepo struct {
	domain.BookingRepository
	CreateFunc               func(ctx context.Context, booking domain.Booking) error
	GetByIdFunc              func(ctx context.Context, id string) (*domain.Booking, error)
	FindByIdempotencyKeyFunc func(ctx context.Context, key string) (*domain.Booking, error)
	UpdateStatusFunc         func(ctx context.Context, id string, status domain.BookingStatus, failReason string) error
	ListFunc                 func(ctx context.Context, pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error)
	ListPendingBeforeFunc    func(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
}

func (m *MockBookingRepo) Create(ctx context.Context, booking domain.Booking) error {
	return m.CreateFunc(ctx, booking)
}

func (m *MockBookingRepo) GetById(ctx context.Context, id string) (*domain.Booking, error) {
	return m.GetByIdFunc(ctx, id)
}

func (m *MockBookingRepo) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	return m.FindByIdempotencyKeyFunc(ctx, key)
}

func (m *MockBookingRepo) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus, failReason string) error {
	return m.UpdateStatusFunc(ctx, id, status, failReason)
}

func (m *MockBookingRepo) List(
	ctx context.Context,
	pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error) {

	return m.ListFunc(ctx, pagination)
}

func (m *MockBookingRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	return m.ListPendingBeforeFunc(ctx, cutoff)
}
