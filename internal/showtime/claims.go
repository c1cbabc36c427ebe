package showtime

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/moonkyuu/cinebook/api"
	"github.com/moonkyuu/cinebook/internal/domain"
)

// CreateClaim is the Ledger's single serialization point: it atomically
// acquires every requested seat for the claimant, or none of them.
func (app *Application) CreateClaim(w http.ResponseWriter, r *http.Request) {
	var input api.ClaimRequest

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

	show, err := app.showRepo.GetById(r.Context(), input.ShowtimeId)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	seats := normalizeSeats(input.Seats)

	for _, seat := range seats {
		if !show.HasSeat(seat) {
			app.logger.Warn("claim rejected: seat outside show's seat space",
				"showtime_id", show.ID, "seat", seat)
			app.errorResponse(w, r, http.StatusUnprocessableEntity, domain.ErrUnknownSeat.Error())
			return
		}
	}

	result, err := app.claimRepo.Claim(r.Context(), input.ShowtimeId, seats, input.Claimant)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if !result.Accepted {
		// A conflict is a legitimate business outcome: report exactly which
		// seats were taken so the caller can let the user re-pick.
		resp := api.ClaimConflictResponse{
			Message:     domain.ErrSeatAlreadyClaimed.Error(),
			Conflicting: result.Conflicting,
		}

		err = app.writeJSON(w, http.StatusConflict, resp, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := api.ClaimedSeatsResponse{
		Seats: seats,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetClaimsOfClaimant(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "showtimeID")
	claimant := chi.URLParam(r, "claimant")

	seats, err := app.claimRepo.ClaimsOf(r.Context(), showtimeID, claimant)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.ClaimedSeatsResponse{
		Seats: seats,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ReleaseClaims(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "showtimeID")
	claimant := chi.URLParam(r, "claimant")

	err := app.claimRepo.Release(r.Context(), showtimeID, claimant)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// normalizeSeats collapses duplicates and orders the set so that a request
// naming the same seat twice is a single claim of that seat.
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
