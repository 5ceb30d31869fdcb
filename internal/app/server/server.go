package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolops/internal/domain/attendance"
	"poolops/internal/domain/audit"
	"poolops/internal/domain/auth"
	"poolops/internal/domain/locations"
	"poolops/internal/domain/reports"
	"poolops/internal/domain/schedules"
	"poolops/internal/domain/users"
	"poolops/internal/platform/config"
	"poolops/internal/platform/crypto"
	"poolops/internal/platform/db"
	"poolops/internal/platform/email"
	"poolops/internal/platform/metrics"
	"poolops/internal/transport/http/api"
	audithandler "poolops/internal/transport/http/handlers/audit"
	authhandler "poolops/internal/transport/http/handlers/auth"
	clockhandler "poolops/internal/transport/http/handlers/clock"
	locationshandler "poolops/internal/transport/http/handlers/locations"
	reportshandler "poolops/internal/transport/http/handlers/reports"
	scheduleshandler "poolops/internal/transport/http/handlers/schedules"
	usershandler "poolops/internal/transport/http/handlers/users"
	"poolops/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

// Pinger reports whether the database accepts queries.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services is everything the router mounts.
type Services struct {
	Attendance  *attendance.Service
	Reports     *reports.Service
	Locations   *locations.Service
	Users       *users.Service
	Schedules   *schedules.Service
	Audit       *audit.Service
	Idempotency middleware.Idempotency
	Metrics     *metrics.Collector
}

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Services Services
	Router   http.Handler
}

// New connects to the database, applies migrations and the admin seed when
// enabled, and assembles the services and router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		if len(applied) > 0 {
			slog.Info("migrations applied", "versions", applied)
		}
	}

	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	services, err := NewServices(cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		DB:       pool,
		Services: services,
		Router:   NewRouter(cfg, services, pool),
	}, nil
}

// NewServices builds the domain services over pool.
func NewServices(cfg config.Config, pool *pgxpool.Pool) (Services, error) {
	cipher, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return Services{}, fmt.Errorf("encryption key: %w", err)
	}
	zone := cfg.Location()
	collector := metrics.New()

	scheduleSvc := schedules.NewService(schedules.NewStore(pool), zone)

	attendanceSvc := attendance.NewService(attendance.NewStore(pool), scheduleSvc, attendance.Policy{
		GracePeriod:  cfg.GracePeriod,
		EarlyClockIn: cfg.EarlyClockIn,
		Zone:         zone,
	})
	attendanceSvc.Metrics = collector

	reportsSvc := reports.NewService(reports.NewStore(pool), cfg.MaxChemicalReadings)
	reportsSvc.Metrics = collector

	usersSvc := users.NewService(users.NewStore(pool), email.New(cfg), users.InviteSettings{
		TTL:     cfg.InviteTTL,
		BaseURL: cfg.InviteBaseURL,
		From:    cfg.EmailFrom,
	})

	return Services{
		Attendance:  attendanceSvc,
		Reports:     reportsSvc,
		Locations:   locations.NewService(locations.NewStore(pool, cipher)),
		Users:       usersSvc,
		Schedules:   scheduleSvc,
		Audit:       audit.New(pool),
		Idempotency: middleware.NewIdempotencyStore(pool),
		Metrics:     collector,
	}, nil
}

// NewRouter mounts the JSON API under /api, the clock forms under /Clock and
// the health endpoints at the root.
func NewRouter(cfg config.Config, svc Services, ready Pinger) http.Handler {
	perms := auth.NewStaticPermissions()
	collector := svc.Metrics
	if collector == nil {
		collector = metrics.New()
	}
	isProd := cfg.Environment == "production"

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.SecureHeaders(isProd))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready == nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	clock := clockhandler.NewHandler(svc.Attendance, perms, svc.Audit)
	clock.RegisterForms(router)

	router.Route("/api", func(r chi.Router) {
		authhandler.NewHandler(svc.Users, cfg.JWTSecret, cfg.TokenTTL, isProd, svc.Audit).RegisterRoutes(r)
		clock.RegisterRoutes(r)
		reportshandler.NewHandler(svc.Reports, perms, svc.Audit, svc.Idempotency, cfg.Location()).RegisterRoutes(r)
		locationshandler.NewHandler(svc.Locations, perms, svc.Audit).RegisterRoutes(r)
		usershandler.NewHandler(svc.Users, perms, svc.Audit).RegisterRoutes(r)
		scheduleshandler.NewHandler(svc.Schedules, perms, svc.Audit).RegisterRoutes(r)
		audithandler.NewHandler(svc.Audit, perms).RegisterRoutes(r)
	})

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("poolops server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
