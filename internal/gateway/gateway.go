// Package gateway is the single public entry point: it forwards /api/v1
// traffic to the showtime and booking services, which stay private behind it.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/moonkyuu/cinebook/api"
	"github.com/moonkyuu/cinebook/internal/vcs"
)

var (
	version = vcs.Version()
)

type Config struct {
	Port        int
	Env         string
	ShowtimeURL string
	BookingURL  string
}

type Application struct {
	config Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Application {
	return &Application{
		config: cfg,
		logger: logger,
	}
}

func Run() error {
	// Missing .env is fine; flags and defaults still apply.
	_ = godotenv.Load()

	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")
	flag.StringVar(&cfg.ShowtimeURL, "showtime-url", envOr("SHOWTIME_URL", "http://localhost:3001"), "Showtime service base URL")
	flag.StringVar(&cfg.BookingURL, "booking-url", envOr("BOOKING_URL", "http://localhost:3002"), "Booking service base URL")

	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app := New(cfg, logger)

	handler, err := app.Routes()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	logger.Info("starting gateway", "addr", srv.Addr, "env", cfg.Env)

	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-shutdownError
}

func (app *Application) Routes() (http.Handler, error) {
	showtimeProxy, err := app.newProxy(app.config.ShowtimeURL)
	if err != nil {
		return nil, err
	}

	bookingProxy, err := app.newProxy(app.config.BookingURL)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", app.GetHealth)

	// The upstream services speak unprefixed paths; the prefix is the
	// gateway's public namespace.
	// /seats/reserved is deliberately absent: that read is service-internal.
	r.Handle("/api/v1/showtimes", http.StripPrefix("/api/v1", showtimeProxy))
	r.Handle("/api/v1/showtimes/*", http.StripPrefix("/api/v1", showtimeProxy))
	r.Handle("/api/v1/bookings", http.StripPrefix("/api/v1", bookingProxy))
	r.Handle("/api/v1/bookings/*", http.StripPrefix("/api/v1", bookingProxy))

	return r, nil
}

// newProxy builds a reverse proxy to an upstream. A dead upstream answers 502
// with the service's standard error envelope instead of a blank page.
func (app *Application) newProxy(upstream string) (http.Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url %q: %w", upstream, err)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = singleJoin(target.Path, pr.In.URL.Path)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			app.logger.Error("upstream unreachable", "upstream", upstream, "error", err)

			app.errorResponse(w, r, http.StatusBadGateway, "Upstream service unavailable")
		},
	}

	return proxy, nil
}

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthcheckResponse{
		Status: "UP",
		SystemInfo: api.SystemInfo{
			Version:     version,
			Environment: app.config.Env,
		},
	}

	app.writeJSON(w, http.StatusOK, resp, nil)
}

func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logger.Error(err.Error(), "method", r.Method, "uri", r.URL.RequestURI())
		w.WriteHeader(500)
	}
}

func (app *Application) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func singleJoin(a, b string) string {
	aSlash := strings.HasSuffix(a, "/")
	bSlash := strings.HasPrefix(b, "/")

	switch {
	case aSlash && bSlash:
		return a + b[1:]
	case !aSlash && !bSlash:
		return a + "/" + b
	}

	return a + b
}

func envOr(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	return value
}
