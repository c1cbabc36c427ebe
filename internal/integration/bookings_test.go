package integration_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moonkyuu/cinebook/internal/domain"
	"github.com/moonkyuu/cinebook/internal/repository"
)

type BookingsSuite struct {
	BaseSuite
	repo *repository.PostgresBookingRepository
}

func (s *BookingsSuite) SetupTest() {
	s.repo = repository.NewPostgresBookingRepository(s.db)
	s.truncate("bookings")
}

func (s *BookingsSuite) TestCreateAndGet() {
	ctx := context.Background()

	booking := domain.Booking{
		ID:         uuid.NewString(),
		ShowtimeID: "S101",
		UserID:     "user-1",
		Seats:      []string{"A1", "A2"},
		Status:     domain.BookingStatusPending,
	}

	s.Require().NoError(s.repo.Create(ctx, booking))

	got, err := s.repo.GetById(ctx, booking.ID)
	s.Require().NoError(err)
	s.Equal(booking.ShowtimeID, got.ShowtimeID)
	s.Equal(booking.Seats, got.Seats)
	s.Equal(domain.BookingStatusPending, got.Status)
	s.False(got.CreatedAt.IsZero())

	_, err = s.repo.GetById(ctx, uuid.NewString())
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *BookingsSuite) TestIdempotencyKeyIsUniquePerBooking() {
	ctx := context.Background()

	first := domain.Booking{
		ID:             uuid.NewString(),
		ShowtimeID:     "S101",
		UserID:         "user-1",
		Seats:          []string{"A1"},
		Status:         domain.BookingStatusPending,
		IdempotencyKey: "retry-key-1",
	}
	s.Require().NoError(s.repo.Create(ctx, first))

	second := first
	second.ID = uuid.NewString()

	err := s.repo.Create(ctx, second)
	s.Require().ErrorIs(err, domain.ErrIdempotencyConflict)

	found, err := s.repo.FindByIdempotencyKey(ctx, "retry-key-1")
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)
}

func (s *BookingsSuite) TestBookingsWithoutKeyNeverCollide() {
	ctx := context.Background()

	// The unique index is partial: an empty key means "no key", any number of
	// bookings may carry it.
	for i := 0; i < 3; i++ {
		err := s.repo.Create(ctx, domain.Booking{
			ID:         uuid.NewString(),
			ShowtimeID: "S101",
			UserID:     "user-1",
			Seats:      []string{"A1"},
			Status:     domain.BookingStatusPending,
		})
		s.Require().NoError(err)
	}
}

func (s *BookingsSuite) TestUpdateStatus() {
	ctx := context.Background()

	booking := domain.Booking{
		ID:         uuid.NewString(),
		ShowtimeID: "S101",
		UserID:     "user-1",
		Seats:      []string{"A1"},
		Status:     domain.BookingStatusPending,
	}
	s.Require().NoError(s.repo.Create(ctx, booking))

	err := s.repo.UpdateStatus(ctx, booking.ID, domain.BookingStatusFailed, domain.FailReasonUnknown)
	s.Require().NoError(err)

	got, err := s.repo.GetById(ctx, booking.ID)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusFailed, got.Status)
	s.Equal(domain.FailReasonUnknown, got.FailReason)

	err = s.repo.UpdateStatus(ctx, uuid.NewString(), domain.BookingStatusConfirmed, "")
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *BookingsSuite) TestListPendingBefore() {
	ctx := context.Background()

	stale := domain.Booking{
		ID:         uuid.NewString(),
		ShowtimeID: "S101",
		UserID:     "user-1",
		Seats:      []string{"A1"},
		Status:     domain.BookingStatusPending,
	}
	s.Require().NoError(s.repo.Create(ctx, stale))

	settled := stale
	settled.ID = uuid.NewString()
	s.Require().NoError(s.repo.Create(ctx, settled))
	s.Require().NoError(s.repo.UpdateStatus(ctx, settled.ID, domain.BookingStatusConfirmed, ""))

	pending, err := s.repo.ListPendingBefore(ctx, time.Now().Add(time.Minute))
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(stale.ID, pending[0].ID)

	pending, err = s.repo.ListPendingBefore(ctx, time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *BookingsSuite) TestListPaginates() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.repo.Create(ctx, domain.Booking{
			ID:         uuid.NewString(),
			ShowtimeID: "S101",
			UserID:     "user-1",
			Seats:      []string{"A1"},
			Status:     domain.BookingStatusConfirmed,
		})
		s.Require().NoError(err)
	}

	bookings, metadata, err := s.repo.List(ctx, domain.Pagination{Page: 1, PageSize: 2})
	s.Require().NoError(err)
	s.Len(bookings, 2)
	s.Equal(5, metadata.TotalRecords)
	s.Equal(3, metadata.LastPage)

	bookings, _, err = s.repo.List(ctx, domain.Pagination{Page: 3, PageSize: 2})
	s.Require().NoError(err)
	s.Len(bookings, 1)
}
