package booking

import (
	"context"
	"errors"
	"time"

	"github.com/moonkyuu/cinebook/internal/domain"
)

// RecoverPendingBookings settles bookings left PENDING by a crash. It runs
// before the server accepts traffic so stale records cannot race new requests.
// Each booking is resolved from the ledger: claims present means the claim
// succeeded before the crash, claims absent means it never happened.
func (app *Application) RecoverPendingBookings(ctx context.Context) error {
	cutoff := time.Now().Add(-app.config.RecoveryGrace)

	pending, err := app.bookingRepo.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		return nil
	}

	app.logger.Info("recovering stale PENDING bookings", "count", len(pending))

	for _, booking := range pending {
		result, err := app.reconcileBooking(ctx, booking)
		if err != nil {
			if errors.Is(err, domain.ErrInvariantViolation) {
				// Already logged with full detail; leave the record PENDING
				// for an operator, never auto-repair a mismatched claim set.
				continue
			}
			app.logger.Warn("could not reconcile booking, leaving PENDING",
				"booking_id", booking.ID, "error", err)
			continue
		}

		app.logger.Info("recovered booking",
			"booking_id", booking.ID, "status", result.Status, "reason", result.Reason)
	}

	return nil
}
