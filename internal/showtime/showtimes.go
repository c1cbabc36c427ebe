package showtime

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/moonkyuu/cinebook/api"
	"github.com/moonkyuu/cinebook/internal/domain"
)

func (app *Application) ListShowtimes(w http.ResponseWriter, r *http.Request) {
	shows, err := app.showRepo.List(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := make([]api.Showtime, len(shows))
	for i, show := range shows {
		resp[i] = toApiShowtime(show)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "showtimeID")

	show, err := app.showRepo.GetById(r.Context(), showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	reserved, err := app.claimRepo.QueryReserved(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	reservedSet := make(map[string]bool, len(reserved))
	for _, seat := range reserved {
		reservedSet[seat] = true
	}

	available := make([]string, 0, show.TotalSeats-len(reserved))
	for _, seat := range show.SeatLabels() {
		if !reservedSet[seat] {
			available = append(available, seat)
		}
	}

	resp := api.SeatMapResponse{
		ShowtimeId: show.ID,
		Movie:      show.Movie,
		Time:       show.Time,
		Total:      show.TotalSeats,
		Reserved:   reserved,
		Available:  available,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetReservedSeats(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "showtimeID")

	reserved, err := app.claimRepo.QueryReserved(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.ReservedSeatsResponse{
		Reserved: reserved,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toApiShowtime(show domain.Show) api.Showtime {
	return api.Showtime{
		Id:         show.ID,
		Movie:      show.Movie,
		Time:       show.Time,
		Theater:    show.Theater,
		TotalSeats: show.TotalSeats,
	}
}
