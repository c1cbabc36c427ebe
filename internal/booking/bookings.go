package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/moonkyuu/cinebook/api"
	"github.com/moonkyuu/cinebook/internal/domain"
)

func (app *Application) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")

	booking, err := app.bookingRepo.GetById(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toApiBooking(*booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	pagination := domain.Pagination{
		Page:     readIntParam(r, "page", 1),
		PageSize: readIntParam(r, "pageSize", 20),
	}

	err := app.validator.Struct(pagination)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	bookings, metadata, err := app.bookingRepo.List(r.Context(), pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.BookingListResponse{
		Bookings: make([]api.Booking, len(bookings)),
		Metadata: api.Metadata{
			CurrentPage:  metadata.CurrentPage,
			FirstPage:    metadata.FirstPage,
			LastPage:     metadata.LastPage,
			PageSize:     metadata.PageSize,
			TotalRecords: metadata.TotalRecords,
		},
	}
	for i, booking := range bookings {
		resp.Bookings[i] = toApiBooking(booking)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toApiBooking(booking domain.Booking) api.Booking {
	return api.Booking{
		BookingId:  booking.ID,
		ShowtimeId: booking.ShowtimeID,
		UserId:     booking.UserID,
		Seats:      booking.Seats,
		Status:     string(booking.Status),
		Reason:     booking.FailReason,
		CreatedAt:  booking.CreatedAt,
	}
}

func readIntParam(r *http.Request, name string, fallback int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return n
}
