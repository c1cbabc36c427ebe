// Package booking runs the Booking Coordinator: it turns a client's
// seat-selection request into a durable booking backed by seat claims in the
// ledger, or into a precise conflict report.
package booking

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moonkyuu/cinebook/internal/domain"
	"github.com/moonkyuu/cinebook/internal/migrate"
	"github.com/moonkyuu/cinebook/internal/repository"
	"github.com/moonkyuu/cinebook/internal/showtimeclient"
	appvalidator "github.com/moonkyuu/cinebook/internal/validator"
	"github.com/moonkyuu/cinebook/internal/vcs"
	"github.com/redis/go-redis/v9"
)

var (
	version = vcs.Version()
)

type Config struct {
	Port int
	Env  string
	DB   struct {
		DSN          string
		MaxOpenConns int
		MaxIdleTime  time.Duration
	}
	Redis struct {
		URL            string
		IdempotencyTTL time.Duration
	}
	Showtime struct {
		URL          string
		ClaimTimeout time.Duration
	}
	AMQP struct {
		URL string
	}
	OtelCollectorURL string

	// ClaimRetries bounds how often an unknown claim outcome is retried
	// before the booking is surfaced as FAILED.
	ClaimRetries int
	// RecoveryGrace is how old a PENDING booking must be before startup
	// recovery reconciles it, leaving in-flight requests alone.
	RecoveryGrace time.Duration
}

type Application struct {
	config    Config
	logger    *slog.Logger
	validator *validator.Validate

	bookingRepo domain.BookingRepository
	catalog     domain.ShowCatalog
	ledger      domain.Ledger

	idempotency *IdempotencyStore
	events      *EventPublisher
	metrics     *reservationMetrics
}

func New(
	cfg Config,
	logger *slog.Logger,
	bookingRepo domain.BookingRepository,
	catalog domain.ShowCatalog,
	ledger domain.Ledger,
	idempotency *IdempotencyStore,
	events *EventPublisher) *Application {

	return &Application{
		config:      cfg,
		logger:      logger,
		validator:   appvalidator.NewValidator(),
		bookingRepo: bookingRepo,
		catalog:     catalog,
		ledger:      ledger,
		idempotency: idempotency,
		events:      events,
		metrics:     newReservationMetrics(),
	}
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3002, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN (empty runs an in-memory booking store)")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL for the idempotency cache (optional)")
	flag.DurationVar(&cfg.Redis.IdempotencyTTL, "idempotency-ttl", 24*time.Hour, "Idempotency key retention window")

	flag.StringVar(&cfg.Showtime.URL, "showtime-url", "http://localhost:3001", "Showtime service base URL")
	flag.DurationVar(&cfg.Showtime.ClaimTimeout, "claim-timeout", 3*time.Second, "Per-call timeout for ledger claims")

	flag.StringVar(&cfg.AMQP.URL, "amqp-url", "", "RabbitMQ URL for booking events (optional)")
	flag.StringVar(&cfg.OtelCollectorURL, "otel-collector-url", "", "OpenTelemetry collector URL (optional)")

	flag.IntVar(&cfg.ClaimRetries, "claim-retries", 2, "Retry budget for claims with unknown outcome")
	flag.DurationVar(&cfg.RecoveryGrace, "recovery-grace", time.Minute, "Age before a PENDING booking is reconciled at startup")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var bookingRepo domain.BookingRepository

	if cfg.DB.DSN == "" {
		logger.Warn("no db-dsn set, running with an in-memory booking store; bookings will not survive a restart")

		bookingRepo = repository.NewMemoryBookingRepository()
	} else {
		db, err := newDatabasePool(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		err = migrate.BookingSchema(context.Background(), db)
		if err != nil {
			return err
		}

		bookingRepo = repository.NewPostgresBookingRepository(db)
	}

	var idempotency *IdempotencyStore

	if cfg.Redis.URL != "" {
		redisClient, err := newRedisClient(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		idempotency = NewIdempotencyStore(redisClient, cfg.Redis.IdempotencyTTL)
	}

	var events *EventPublisher

	if cfg.AMQP.URL != "" {
		events = NewEventPublisher(cfg.AMQP.URL, logger)
		defer events.Close()
	}

	showtimes := showtimeclient.New(cfg.Showtime.URL, showtimeclient.WithTimeout(cfg.Showtime.ClaimTimeout))

	app := New(cfg, logger, bookingRepo, showtimes, showtimes, idempotency, events)

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	// Crash recovery must settle previously-PENDING bookings before new
	// traffic can race them.
	err = app.RecoverPendingBookings(context.Background())
	if err != nil {
		return err
	}

	return app.serve()
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.URL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting booking service", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(app.recoverPanic)

	r.Get("/health", app.GetHealth)

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", app.CreateBookingHandler)
		r.Get("/", app.ListBookingsHandler)
		r.Get("/{bookingID}", app.GetBookingHandler)
	})

	return r
}
