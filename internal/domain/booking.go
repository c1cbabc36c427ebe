package domain

import (
	"context"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusFailed    BookingStatus = "FAILED"
)

const (
	// FailReasonConflict marks bookings rejected because seats were taken.
	FailReasonConflict = "seats already reserved"
	// FailReasonUnknown marks bookings whose claim outcome could not be
	// resolved within the retry budget.
	FailReasonUnknown = "unknown, contact support"
	// FailReasonAbandoned marks PENDING bookings that crash recovery
	// resolved to FAILED because no claim was found in the ledger.
	FailReasonAbandoned = "abandoned before claim"
)

// Booking is a client's reservation request and its outcome record. A booking
// is CONFIRMED if and only if every seat in Seats has an active claim in the
// ledger whose claimant equals Booking.ID.
type Booking struct {
	ID             string
	ShowtimeID     string
	UserID         string
	Seats          []string
	Status         BookingStatus
	FailReason     string
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SameIntent reports whether a retried request matches this booking's intent:
// same requester, show and seat set. Seats are compared in order; callers
// normalize seat sets before use.
func (b Booking) SameIntent(showtimeID, userID string, seats []string) bool {
	if b.ShowtimeID != showtimeID || b.UserID != userID || len(b.Seats) != len(seats) {
		return false
	}
	for i := range seats {
		if b.Seats[i] != seats[i] {
			return false
		}
	}
	return true
}

type BookingRepository interface {
	Create(ctx context.Context, booking Booking) error
	GetById(ctx context.Context, id string) (*Booking, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Booking, error)
	UpdateStatus(ctx context.Context, id string, status BookingStatus, failReason string) error
	List(ctx context.Context, pagination Pagination) ([]Booking, *Metadata, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]Booking, error)
}
