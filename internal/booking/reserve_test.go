package booking

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/moonkyuu/cinebook/api"
	"github.com/moonkyuu/cinebook/internal/domain"
	"github.com/moonkyuu/cinebook/internal/mocks"
	"github.com/moonkyuu/cinebook/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func duneCatalog() *mocks.MockCatalog {
	return &mocks.MockCatalog{
		GetShowFunc: func(ctx context.Context, id string) (*domain.Show, error) {
			if id != "S101" {
				return nil, domain.ErrRecordNotFound
			}
			return &domain.Show{
				ID:         "S101",
				Movie:      "Dune: Part Two",
				Time:       "14:00",
				Theater:    "T1",
				TotalSeats: 50,
			}, nil
		},
	}
}

func reserveRequest(seats ...string) api.CreateBookingRequest {
	return api.CreateBookingRequest{
		ShowtimeId: "S101",
		Seats:      seats,
		UserId:     "user-1",
	}
}

func TestCreateBooking_Confirmed(t *testing.T) {
	bookingRepo := repository.NewMemoryBookingRepository()

	var claimant string
	app := newTestApplication(func(a *Application) {
		a.bookingRepo = bookingRepo
		a.catalog = duneCatalog()
		a.ledger = &mocks.MockLedger{
			ClaimFunc: func(ctx context.Context, showtimeID string, seats []string, c string) (domain.ClaimResult, error) {
				claimant = c
				assert.Equal(t, "S101", showtimeID)
				assert.Equal(t, []string{"A1", "A2"}, seats)
				return domain.ClaimResult{Accepted: true}, nil
			},
		}
	})

	w := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A1", "A2"), nil)

	require.Equal(t, http.StatusCreated, w.Code)

	result := decodeResponse[api.ReservationResult](t, w)
	assert.Equal(t, api.ReservationStatusConfirmed, result.Status)
	require.NotEmpty(t, result.BookingId)

	// The claimant token is the booking id, so the ledger entry points back at
	// its booking.
	assert.Equal(t, result.BookingId, claimant)

	booking, err := bookingRepo.GetById(context.Background(), result.BookingId)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
}

func TestCreateBooking_Conflict(t *testing.T) {
	bookingRepo := repository.NewMemoryBookingRepository()

	app := newTestApplication(func(a *Application) {
		a.bookingRepo = bookingRepo
		a.catalog = duneCatalog()
		a.ledger = &mocks.MockLedger{
			ClaimFunc: func(ctx context.Context, showtimeID string, seats []string, c string) (domain.ClaimResult, error) {
				return domain.ClaimResult{Conflicting: []string{"A2"}}, nil
			},
		}
	})

	w := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A2", "A3"), nil)

	require.Equal(t, http.StatusConflict, w.Code)

	result := decodeResponse[api.ReservationResult](t, w)
	assert.Equal(t, api.ReservationStatusConflict, result.Status)
	assert.Equal(t, []string{"A2"}, result.Seats)

	bookings, _, err := bookingRepo.List(context.Background(), domain.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, domain.BookingStatusFailed, bookings[0].Status)
	assert.Equal(t, domain.FailReasonConflict, bookings[0].FailReason)
}

func TestCreateBooking_UnknownShowtime(t *testing.T) {
	app := newTestApplication(func(a *Application) {
		a.catalog = duneCatalog()
	})

	request := api.CreateBookingRequest{
		ShowtimeId: "S999",
		Seats:      []string{"A1"},
		UserId:     "user-1",
	}

	w := executeRequest(t, app, http.MethodPost, "/bookings", request, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateBooking_SeatOutsideSeatSpace(t *testing.T) {
	app := newTestApplication(func(a *Application) {
		a.catalog = duneCatalog()
	})

	w := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("Z9"), nil)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateBooking_UnknownOutcomeConfirmedByReconciliation(t *testing.T) {
	bookingRepo := repository.NewMemoryBookingRepository()

	claims := 0
	app := newTestApplication(func(a *Application) {
		a.bookingRepo = bookingRepo
		a.catalog = duneCatalog()
		a.ledger = &mocks.MockLedger{
			ClaimFunc: func(ctx context.Context, showtimeID string, seats []string, c string) (domain.ClaimResult, error) {
				claims++
				// The claim lands but the response is lost.
				return domain.ClaimResult{}, errors.New("timeout awaiting response")
			},
			ClaimsOfFunc: func(ctx context.Context, showtimeID, c string) ([]string, error) {
				return []string{"A1", "A2"}, nil
			},
		}
	})

	w := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A1", "A2"), nil)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, claims)

	result := decodeResponse[api.ReservationResult](t, w)
	assert.Equal(t, api.ReservationStatusConfirmed, result.Status)

	booking, err := bookingRepo.GetById(context.Background(), result.BookingId)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
}

func TestCreateBooking_UnknownOutcomeRetriesThenClaims(t *testing.T) {
	bookingRepo := repository.NewMemoryBookingRepository()

	claims := 0
	app := newTestApplication(func(a *Application) {
		a.bookingRepo = bookingRepo
		a.catalog = duneCatalog()
		a.ledger = &mocks.MockLedger{
			ClaimFunc: func(ctx context.Context, showtimeID string, seats []string, c string) (domain.ClaimResult, error) {
				claims++
				if claims == 1 {
					// First attempt dies before reaching the ledger.
					return domain.ClaimResult{}, errors.New("connection refused")
				}
				return domain.ClaimResult{Accepted: true}, nil
			},
			ClaimsOfFunc: func(ctx context.Context, showtimeID, c string) ([]string, error) {
				return nil, nil
			},
		}
	})

	w := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A1"), nil)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, claims)
}

func TestCreateBooking_UnknownOutcomeExhaustsRetryBudget(t *testing.T) {
	bookingRepo := repository.NewMemoryBookingRepository()

	released := false
	app := newTestApplication(func(a *Application) {
		a.config.ClaimRetries = 1
		a.bookingRepo = bookingRepo
		a.catalog = duneCatalog()
		a.ledger = &mocks.MockLedger{
			ClaimFunc: func(ctx context.Context, showtimeID string, seats []string, c string) (domain.ClaimResult, error) {
				return domain.ClaimResult{}, errors.New("timeout awaiting response")
			},
			ClaimsOfFunc: func(ctx context.Context, showtimeID, c string) ([]string, error) {
				return nil, errors.New("timeout awaiting response")
			},
			ReleaseFunc: func(ctx context.Context, showtimeID, c string) error {
				released = true
				return nil
			},
		}
	})

	w := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A1"), nil)

	require.Equal(t, http.StatusBadGateway, w.Code)

	result := decodeResponse[api.ReservationResult](t, w)
	assert.Equal(t, api.ReservationStatusFailed, result.Status)
	assert.Equal(t, domain.FailReasonUnknown, result.Reason)
	assert.True(t, released)

	bookings, _, err := bookingRepo.List(context.Background(), domain.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, domain.BookingStatusFailed, bookings[0].Status)
	assert.Equal(t, domain.FailReasonUnknown, bookings[0].FailReason)
}

func TestCreateBooking_IdempotentRetryReplaysOutcome(t *testing.T) {
	bookingRepo := repository.NewMemoryBookingRepository()

	claims := 0
	app := newTestApplication(func(a *Application) {
		a.bookingRepo = bookingRepo
		a.catalog = duneCatalog()
		a.ledger = &mocks.MockLedger{
			ClaimFunc: func(ctx context.Context, showtimeID string, seats []string, c string) (domain.ClaimResult, error) {
				claims++
				return domain.ClaimResult{Accepted: true}, nil
			},
		}
	})

	headers := map[string]string{"Idempotency-Key": "retry-key-1"}

	first := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A1", "A2"), headers)
	require.Equal(t, http.StatusCreated, first.Code)
	firstResult := decodeResponse[api.ReservationResult](t, first)

	second := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A1", "A2"), headers)
	require.Equal(t, http.StatusCreated, second.Code)
	secondResult := decodeResponse[api.ReservationResult](t, second)

	// Same booking, no second claim.
	assert.Equal(t, firstResult.BookingId, secondResult.BookingId)
	assert.Equal(t, 1, claims)

	bookings, _, err := bookingRepo.List(context.Background(), domain.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestCreateBooking_IdempotentRetryOfConflictedBooking(t *testing.T) {
	app := newTestApplication(func(a *Application) {
		a.catalog = duneCatalog()
		a.ledger = &mocks.MockLedger{
			ClaimFunc: func(ctx context.Context, showtimeID string, seats []string, c string) (domain.ClaimResult, error) {
				return domain.ClaimResult{Conflicting: []string{"A2"}}, nil
			},
		}
	})

	headers := map[string]string{"Idempotency-Key": "retry-key-1"}

	first := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A2"), headers)
	require.Equal(t, http.StatusConflict, first.Code)

	// The replay reports the stored outcome by reason alone; the conflicting
	// set is not persisted, so none is echoed back.
	second := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A2"), headers)
	require.Equal(t, http.StatusConflict, second.Code)

	result := decodeResponse[api.ReservationResult](t, second)
	assert.Equal(t, api.ReservationStatusConflict, result.Status)
	assert.Equal(t, domain.FailReasonConflict, result.Reason)
	assert.Empty(t, result.Seats)
}

func TestCreateBooking_IdempotencyKeyReusedForDifferentIntent(t *testing.T) {
	app := newTestApplication(func(a *Application) {
		a.catalog = duneCatalog()
		a.ledger = &mocks.MockLedger{
			ClaimFunc: func(ctx context.Context, showtimeID string, seats []string, c string) (domain.ClaimResult, error) {
				return domain.ClaimResult{Accepted: true}, nil
			},
		}
	})

	headers := map[string]string{"Idempotency-Key": "retry-key-1"}

	first := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A1"), headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("B1"), headers)
	require.Equal(t, http.StatusConflict, second.Code)
}

func TestCreateBooking_IdempotentRetryOfPendingBookingReconciles(t *testing.T) {
	bookingRepo := repository.NewMemoryBookingRepository()

	// A booking from a previous process crashed mid-protocol, after its claim
	// landed.
	require.NoError(t, bookingRepo.Create(context.Background(), domain.Booking{
		ID:             "booking-1",
		ShowtimeID:     "S101",
		UserID:         "user-1",
		Seats:          []string{"A1", "A2"},
		Status:         domain.BookingStatusPending,
		IdempotencyKey: "retry-key-1",
	}))

	app := newTestApplication(func(a *Application) {
		a.bookingRepo = bookingRepo
		a.catalog = duneCatalog()
		a.ledger = &mocks.MockLedger{
			ClaimsOfFunc: func(ctx context.Context, showtimeID, c string) ([]string, error) {
				return []string{"A1", "A2"}, nil
			},
		}
	})

	headers := map[string]string{"Idempotency-Key": "retry-key-1"}

	w := executeRequest(t, app, http.MethodPost, "/bookings", reserveRequest("A1", "A2"), headers)
	require.Equal(t, http.StatusCreated, w.Code)

	result := decodeResponse[api.ReservationResult](t, w)
	assert.Equal(t, api.ReservationStatusConfirmed, result.Status)
	assert.Equal(t, "booking-1", result.BookingId)
}

func TestCreateBooking_ValidationFailures(t *testing.T) {
	app := newTestApplication()

	tests := []struct {
		name    string
		request api.CreateBookingRequest
	}{
		{
			name:    "missing seats",
			request: api.CreateBookingRequest{ShowtimeId: "S101", UserId: "user-1"},
		},
		{
			name:    "malformed seat label",
			request: api.CreateBookingRequest{ShowtimeId: "S101", Seats: []string{"11A"}, UserId: "user-1"},
		},
		{
			name:    "missing user",
			request: api.CreateBookingRequest{ShowtimeId: "S101", Seats: []string{"A1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := executeRequest(t, app, http.MethodPost, "/bookings", tt.request, nil)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		})
	}
}
