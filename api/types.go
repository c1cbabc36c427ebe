// Package api holds the wire types shared by the gateway, showtime and booking
// services. Field names follow the public JSON contract.
package api

import "time"

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type Showtime struct {
	Id         string `json:"id"`
	Movie      string `json:"movie"`
	Time       string `json:"time"`
	Theater    string `json:"theater"`
	TotalSeats int    `json:"totalSeats"`
}

type SeatMapResponse struct {
	ShowtimeId string   `json:"showtimeId"`
	Movie      string   `json:"movie"`
	Time       string   `json:"time"`
	Total      int      `json:"total"`
	Reserved   []string `json:"reserved"`
	Available  []string `json:"available"`
}

type ReservedSeatsResponse struct {
	Reserved []string `json:"reserved"`
}

// ClaimRequest is the Seat Ledger's atomic multi-seat claim. The claimant is
// the booking id that will own the seats.
type ClaimRequest struct {
	ShowtimeId string   `json:"showtimeId" validate:"required"`
	Seats      []string `json:"seats" validate:"required,min=1,dive,seat_label"`
	Claimant   string   `json:"claimant" validate:"required,uuid4"`
}

type ClaimConflictResponse struct {
	Message     string   `json:"message"`
	Conflicting []string `json:"conflicting"`
}

type ClaimedSeatsResponse struct {
	Seats []string `json:"seats"`
}

type CreateBookingRequest struct {
	ShowtimeId string   `json:"showtimeId" validate:"required"`
	Seats      []string `json:"seats" validate:"required,min=1,dive,seat_label"`
	UserId     string   `json:"userId" validate:"required"`
}

const (
	ReservationStatusConfirmed = "CONFIRMED"
	ReservationStatusConflict  = "CONFLICT"
	ReservationStatusFailed    = "FAILED"
)

// ReservationResult is the outcome of a reserve call: BookingId on CONFIRMED,
// Seats (the conflicting subset) on a fresh CONFLICT, Reason otherwise. A
// CONFLICT replayed through an Idempotency-Key carries only Reason: the
// conflicting set is not persisted, and recomputing it would describe a later
// ledger state than the one that rejected the booking.
type ReservationResult struct {
	Status    string   `json:"status"`
	BookingId string   `json:"bookingId,omitempty"`
	Seats     []string `json:"seats,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

type Booking struct {
	BookingId  string    `json:"bookingId"`
	ShowtimeId string    `json:"showtimeId"`
	UserId     string    `json:"userId"`
	Seats      []string  `json:"seats"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type BookingListResponse struct {
	Bookings []Booking `json:"bookings"`
	Metadata Metadata  `json:"metadata"`
}
