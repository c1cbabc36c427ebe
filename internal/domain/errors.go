package domain

import "errors"

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrSeatAlreadyClaimed  = errors.New("seat(s) are already claimed")
	ErrUnknownSeat         = errors.New("seat does not exist for this show")
	ErrIdempotencyConflict = errors.New("idempotency key was already used with a different request")
	ErrInvariantViolation  = errors.New("booking and seat claims are inconsistent")
)
