// Package showtime runs the show catalog and the Seat Ledger: the single
// authoritative record of which seats are taken for a show.
package showtime

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
	appvalidator "github.com/moonkyuu/cinebook/internal/validator"
	"github.com/moonkyuu/cinebook/internal/vcs"
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
}

type Application struct {
	config    Config
	logger    *slog.Logger
	validator *validator.Validate

	showRepo  domain.ShowRepository
	claimRepo domain.ClaimRepository
}

func New(
	cfg Config,
	logger *slog.Logger,
	showRepo domain.ShowRepository,
	claimRepo domain.ClaimRepository) *Application {

	return &Application{
		config:    cfg,
		logger:    logger,
		validator: appvalidator.NewValidator(),
		showRepo:  showRepo,
		claimRepo: claimRepo,
	}
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3001, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN (empty runs in-memory stores)")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var (
		showRepo  domain.ShowRepository
		claimRepo domain.ClaimRepository
	)

	if cfg.DB.DSN == "" {
		logger.Warn("no db-dsn set, running with in-memory stores; claims will not survive a restart")

		showRepo = repository.NewMemoryShowCatalog(repository.SampleShows())
		claimRepo = repository.NewMemoryClaimStore()
	} else {
		db, err := newDatabasePool(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		err = migrate.ShowtimeSchema(context.Background(), db)
		if err != nil {
			return err
		}

		showRepo = repository.NewPostgresShowRepository(db)
		claimRepo = repository.NewPostgresClaimRepository(db)
	}

	app := New(cfg, logger, showRepo, claimRepo)

	return app.serve()
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

	app.logger.Info("starting showtime service", "addr", srv.Addr, "env", app.config.Env)

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

	r.Route("/showtimes", func(r chi.Router) {
		r.Get("/", app.ListShowtimes)
		r.Get("/{showtimeID}/seats", app.GetSeatMap)
	})

	// Internal read used by the booking service before the atomic claim
	// existed; kept for seat-map consumers. Advisory only: arbitration
	// happens inside the claim.
	r.Get("/seats/reserved/{showtimeID}", app.GetReservedSeats)

	r.Route("/claims", func(r chi.Router) {
		r.Post("/", app.CreateClaim)
		r.Get("/{showtimeID}/{claimant}", app.GetClaimsOfClaimant)
		r.Delete("/{showtimeID}/{claimant}", app.ReleaseClaims)
	})

	return r
}
