package booking

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/moonkyuu/cinebook/internal/mocks"
	"github.com/moonkyuu/cinebook/internal/repository"
	"github.com/moonkyuu/cinebook/internal/validator"
)

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		config: Config{
			Env:           "test",
			ClaimRetries:  2,
			RecoveryGrace: 0,
		},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		validator:   validator.NewValidator(),
		bookingRepo: repository.NewMemoryBookingRepository(),
		catalog:     &mocks.MockCatalog{},
		ledger:      &mocks.MockLedger{},
		metrics:     newReservationMetrics(),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func executeRequest(t *testing.T, app *Application, method, url string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		r.Header.Set(key, value)
	}
	w := httptest.NewRecorder()

	app.Routes().ServeHTTP(w, r)

	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	err := json.NewDecoder(w.Body).Decode(&v)
	if err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return v
}
