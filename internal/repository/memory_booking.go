package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moonkyuu/cinebook/internal/domain"
)

// MemoryBookingRepository keeps bookings in process memory. Tests and DSN-less
// dev runs only.
type MemoryBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]domain.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[string]domain.Booking),
	}
}

func (m *MemoryBookingRepository) Create(ctx context.Context, booking domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if booking.IdempotencyKey != "" {
		for _, b := range m.bookings {
			if b.IdempotencyKey == booking.IdempotencyKey {
				return domain.ErrIdempotencyConflict
			}
		}
	}

	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	m.bookings[booking.ID] = booking

	return nil
}

func (m *MemoryBookingRepository) GetById(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &booking, nil
}

func (m *MemoryBookingRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, booking := range m.bookings {
		if booking.IdempotencyKey == key {
			b := booking
			return &b, nil
		}
	}

	return nil, domain.ErrRecordNotFound
}

func (m *MemoryBookingRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.BookingStatus,
	failReason string) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[id]
	if !ok {
		return domain.ErrRecordNotFound
	}

	booking.Status = status
	booking.FailReason = failReason
	booking.UpdatedAt = time.Now()
	m.bookings[id] = booking

	return nil
}

func (m *MemoryBookingRepository) List(
	ctx context.Context,
	pagination domain.Pagination) ([]domain.Booking, *domain.Metadata, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]domain.Booking, 0, len(m.bookings))
	for _, booking := range m.bookings {
		all = append(all, booking)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	metadata := domain.NewMetadata(len(all), pagination.Page, pagination.PageSize)

	start := pagination.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + pagination.Limit()
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], metadata, nil
}

func (m *MemoryBookingRepository) ListPendingBefore(
	ctx context.Context,
	cutoff time.Time) ([]domain.Booking, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	pending := make([]domain.Booking, 0)
	for _, booking := range m.bookings {
		if booking.Status == domain.BookingStatusPending && booking.CreatedAt.Before(cutoff) {
			pending = append(pending, booking)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending, nil
}
