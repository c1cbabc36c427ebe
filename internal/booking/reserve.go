package booking

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moonkyuu/cinebook/api"
	"github.com/moonkyuu/cinebook/internal/domain"
	"github.com/moonkyuu/cinebook/internal/showtimeclient"
)

// CreateBookingHandler runs the reservation protocol: record a PENDING booking
// first, then claim the seats with the booking id as claimant, then settle the
// booking to CONFIRMED or FAILED. The claim outcome, not local bookkeeping,
// decides who gets the seats.
func (app *Application) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	var input api.CreateBookingRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	seats := normalizeSeats(input.Seats)
	idemKey := r.Header.Get("Idempotency-Key")

	if idemKey != "" {
		prior, err := app.findPriorBooking(r.Context(), idemKey)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		if prior != nil {
			app.replayBooking(w, r, prior, input, seats)
			return
		}
	}

	show, err := app.catalog.GetShow(r.Context(), input.ShowtimeId)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	for _, seat := range seats {
		if !show.HasSeat(seat) {
			app.errorResponse(w, r, http.StatusUnprocessableEntity, domain.ErrUnknownSeat.Error())
			return
		}
	}

	booking := domain.Booking{
		ID:             uuid.NewString(),
		ShowtimeID:     input.ShowtimeId,
		UserID:         input.UserId,
		Seats:          seats,
		Status:         domain.BookingStatusPending,
		IdempotencyKey: idemKey,
		CreatedAt:      time.Now(),
	}

	err = app.bookingRepo.Create(r.Context(), booking)
	if err != nil {
		// A concurrent retry with the same key beat us to the insert; replay
		// its booking instead of creating a second one.
		if errors.Is(err, domain.ErrIdempotencyConflict) && idemKey != "" {
			prior, findErr := app.bookingRepo.FindByIdempotencyKey(r.Context(), idemKey)
			if findErr != nil {
				app.serverErrorResponse(w, r, findErr)
				return
			}
			app.replayBooking(w, r, prior, input, seats)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	if app.idempotency != nil && idemKey != "" {
		err = app.idempotency.Remember(r.Context(), idemKey, booking.ID)
		if err != nil {
			app.logger.Warn("idempotency cache write failed", "error", err, "booking_id", booking.ID)
		}
	}

	result := app.executeReservation(r.Context(), booking)

	app.writeReservationResult(w, r, result)
}

// executeReservation drives a PENDING booking to a settled state. The context
// is detached from the request so that a client disconnect cannot abandon a
// half-finished reservation; recovery would otherwise have to clean it up.
func (app *Application) executeReservation(ctx context.Context, booking domain.Booking) api.ReservationResult {
	ctx = context.WithoutCancel(ctx)

	for attempt := 0; attempt <= app.config.ClaimRetries; attempt++ {
		result, err := app.ledger.Claim(ctx, booking.ShowtimeID, booking.Seats, booking.ID)

		if err == nil {
			if result.Accepted {
				return app.confirmBooking(ctx, booking)
			}
			return app.rejectBooking(ctx, booking, result.Conflicting)
		}

		if !showtimeclient.IsOutcomeUnknown(err) {
			// A definite rejection (the show vanished): nothing was claimed.
			app.logger.Error("claim definitively rejected", "booking_id", booking.ID, "error", err)
			break
		}

		app.logger.Warn("claim outcome unknown, reconciling against the ledger",
			"booking_id", booking.ID, "attempt", attempt+1, "error", err)
		app.metrics.claimTimeouts.Add(ctx, 1)

		claimed, recErr := app.ledger.ClaimsOf(ctx, booking.ShowtimeID, booking.ID)
		if recErr != nil {
			continue
		}
		if len(claimed) > 0 {
			// The claim landed before the failure was observed.
			return app.confirmBooking(ctx, booking)
		}
		// The ledger holds nothing for us; the claim can be retried safely.
	}

	return app.failBookingUnknown(ctx, booking)
}

func (app *Application) confirmBooking(ctx context.Context, booking domain.Booking) api.ReservationResult {
	err := app.bookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingStatusConfirmed, "")
	if err != nil {
		// The claims are durable in the ledger, so recovery will settle this
		// booking to CONFIRMED on the next pass.
		app.logger.Error("failed to persist CONFIRMED status", "booking_id", booking.ID, "error", err)
	}

	app.metrics.confirmed.Add(ctx, 1)
	app.publishConfirmed(ctx, booking)

	return api.ReservationResult{
		Status:    api.ReservationStatusConfirmed,
		BookingId: booking.ID,
	}
}

func (app *Application) rejectBooking(ctx context.Context, booking domain.Booking, conflicting []string) api.ReservationResult {
	err := app.bookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingStatusFailed, domain.FailReasonConflict)
	if err != nil {
		app.logger.Error("failed to persist FAILED status", "booking_id", booking.ID, "error", err)
	}

	app.metrics.conflicts.Add(ctx, 1)

	return api.ReservationResult{
		Status: api.ReservationStatusConflict,
		Seats:  conflicting,
	}
}

func (app *Application) failBookingUnknown(ctx context.Context, booking domain.Booking) api.ReservationResult {
	err := app.bookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingStatusFailed, domain.FailReasonUnknown)
	if err != nil {
		app.logger.Error("failed to persist FAILED status", "booking_id", booking.ID, "error", err)
	}

	// Best-effort compensation: if a claim did land without us seeing it,
	// releasing it keeps the seats sellable. Release is idempotent, so
	// releasing nothing is harmless.
	err = app.ledger.Release(ctx, booking.ShowtimeID, booking.ID)
	if err != nil {
		app.logger.Warn("compensating release failed", "booking_id", booking.ID, "error", err)
	}

	app.metrics.failures.Add(ctx, 1)

	return api.ReservationResult{
		Status: api.ReservationStatusFailed,
		Reason: domain.FailReasonUnknown,
	}
}

// findPriorBooking looks up an earlier booking for the idempotency key, redis
// fast path first, then the unique index on the bookings table as backstop.
func (app *Application) findPriorBooking(ctx context.Context, idemKey string) (*domain.Booking, error) {
	if app.idempotency != nil {
		bookingID, err := app.idempotency.Lookup(ctx, idemKey)
		if err != nil {
			app.logger.Warn("idempotency cache lookup failed", "error", err)
		} else if bookingID != "" {
			booking, err := app.bookingRepo.GetById(ctx, bookingID)
			if err == nil {
				return booking, nil
			}
			if !errors.Is(err, domain.ErrRecordNotFound) {
				return nil, err
			}
		}
	}

	booking, err := app.bookingRepo.FindByIdempotencyKey(ctx, idemKey)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return booking, nil
}

// replayBooking answers a retried reserve from the booking the original request
// produced. A key reused for a different show or seat set is a client bug and
// gets a 409 rather than silently replaying the unrelated booking.
func (app *Application) replayBooking(
	w http.ResponseWriter,
	r *http.Request,
	booking *domain.Booking,
	input api.CreateBookingRequest,
	seats []string) {

	if !booking.SameIntent(input.ShowtimeId, input.UserId, seats) {
		app.errorResponse(w, r, http.StatusConflict, domain.ErrIdempotencyConflict.Error())
		return
	}

	switch booking.Status {
	case domain.BookingStatusPending:
		// The original request never settled (crash or in-flight timeout).
		// Reconcile now rather than reporting a state the caller cannot act on.
		result, err := app.reconcileBooking(context.WithoutCancel(r.Context()), *booking)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.writeReservationResult(w, r, result)

	default:
		app.writeReservationResult(w, r, resultForSettledBooking(*booking))
	}
}

// resultForSettledBooking rebuilds the reserve response from the stored
// booking. A replayed conflict carries no seat list, only the reason; see the
// api.ReservationResult contract.
func resultForSettledBooking(booking domain.Booking) api.ReservationResult {
	if booking.Status == domain.BookingStatusConfirmed {
		return api.ReservationResult{
			Status:    api.ReservationStatusConfirmed,
			BookingId: booking.ID,
		}
	}

	if booking.FailReason == domain.FailReasonConflict {
		return api.ReservationResult{
			Status: api.ReservationStatusConflict,
			Reason: domain.FailReasonConflict,
		}
	}

	return api.ReservationResult{
		Status: api.ReservationStatusFailed,
		Reason: booking.FailReason,
	}
}

// reconcileBooking settles a PENDING booking from the ledger's state, which is
// the source of truth: claims present means the reservation happened, claims
// absent means it did not.
func (app *Application) reconcileBooking(ctx context.Context, booking domain.Booking) (api.ReservationResult, error) {
	claimed, err := app.ledger.ClaimsOf(ctx, booking.ShowtimeID, booking.ID)
	if err != nil {
		return api.ReservationResult{}, err
	}

	if len(claimed) > 0 {
		if !sameSeatSet(claimed, booking.Seats) {
			app.logger.Error("invariant violation: ledger claims do not match booking seats",
				"booking_id", booking.ID, "booking_seats", booking.Seats, "claimed", claimed)
			app.metrics.invariantViolations.Add(ctx, 1)
			return api.ReservationResult{}, domain.ErrInvariantViolation
		}
		return app.confirmBooking(ctx, booking), nil
	}

	err = app.bookingRepo.UpdateStatus(ctx, booking.ID, domain.BookingStatusFailed, domain.FailReasonAbandoned)
	if err != nil {
		return api.ReservationResult{}, err
	}

	app.metrics.failures.Add(ctx, 1)

	return api.ReservationResult{
		Status: api.ReservationStatusFailed,
		Reason: domain.FailReasonAbandoned,
	}, nil
}

func (app *Application) writeReservationResult(w http.ResponseWriter, r *http.Request, result api.ReservationResult) {
	var status int

	switch result.Status {
	case api.ReservationStatusConfirmed:
		status = http.StatusCreated
	case api.ReservationStatusConflict:
		status = http.StatusConflict
	default:
		status = http.StatusBadGateway
	}

	err := app.writeJSON(w, status, result, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) publishConfirmed(ctx context.Context, booking domain.Booking) {
	if app.events == nil {
		return
	}

	err := app.events.PublishBookingConfirmed(ctx, BookingConfirmedEvent{
		BookingId:  booking.ID,
		ShowtimeId: booking.ShowtimeID,
		UserId:     booking.UserID,
		Seats:      booking.Seats,
		OccurredAt: time.Now(),
	})
	if err != nil {
		app.logger.Warn("failed to publish booking.confirmed event", "booking_id", booking.ID, "error", err)
	}
}

func sameSeatSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	a = slices.Clone(a)
	b = slices.Clone(b)
	sort.Strings(a)
	sort.Strings(b)

	return slices.Equal(a, b)
}

func normalizeSeats(seats []string) []string {
	seen := make(map[string]bool, len(seats))
	normalized := make([]string, 0, len(seats))

	for _, seat := range seats {
		if !seen[seat] {
			seen[seat] = true
			normalized = append(normalized, seat)
		}
	}

	sort.Strings(normalized)

	return normalized
}
