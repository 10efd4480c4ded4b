// Package app assembles the license service: configuration, logging,
// observability, the store backend, the license core, and the HTTP
// router.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/javannnn/salitemihret-system-sub001/internal/config"
	"github.com/javannnn/salitemihret-system-sub001/internal/infrastructure"
	"github.com/javannnn/salitemihret-system-sub001/internal/license"
	custommw "github.com/javannnn/salitemihret-system-sub001/internal/middleware"
	"github.com/javannnn/salitemihret-system-sub001/internal/services"
	handlers "github.com/javannnn/salitemihret-system-sub001/internal/transport/http"
)

// Version is overridden at build time.
var Version = "dev"

// Application is the assembled service.
type Application struct {
	Config         *config.Config
	Logger         *slog.Logger
	Router         *chi.Mux
	Server         *http.Server
	Manager        *license.Manager
	LicenseService services.LicenseService
	OTelProviders  *infrastructure.OTelProviders

	pool *pgxpool.Pool
}

// NewApplication loads configuration and wires every component.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := infrastructure.NewLogger(cfg.Logging)
	logger.InfoContext(ctx, "starting license service",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port),
		slog.String("store", cfg.Store.Backend))

	otelProviders, err := infrastructure.InitializeOTel(Version, cfg.Logging.Development, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize observability: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, err
	}

	app.setupRouter()
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

func (a *Application) initializeServices(ctx context.Context) error {
	store, err := a.buildStore(ctx)
	if err != nil {
		return fmt.Errorf("initialize license store: %w", err)
	}

	verifyKey, err := a.Config.License.PublicKey()
	if err != nil {
		return err
	}
	codec, err := license.NewTokenCodec(verifyKey, a.Config.License.ClockSkew, nil)
	if err != nil {
		return fmt.Errorf("initialize token codec: %w", err)
	}

	metrics, err := license.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("initialize license metrics: %w", err)
	}

	manager, err := license.NewManager(store, codec, a.Config.License.TrialLength, a.Logger,
		license.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("initialize license manager: %w", err)
	}
	a.Manager = manager
	a.LicenseService = services.NewLicenseService(manager, a.Logger)
	return nil
}

func (a *Application) buildStore(ctx context.Context) (license.Store, error) {
	switch a.Config.Store.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, a.Config.Store.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		return license.NewPostgresStore(ctx, pool,
			license.WithTableName(a.Config.Store.PostgresTable))
	case "memory":
		return license.NewMemoryStore(), nil
	default:
		return license.NewFileStore(a.Config.Store.FilePath, []byte(a.Config.Store.FileSecret))
	}
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(a.Config.Server.RequestTimeout))

	healthHandler := handlers.NewHealthHandler(Version)
	r.Get("/api/health", healthHandler.Health)
	r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)

	limiter := rate.NewLimiter(
		rate.Limit(a.Config.License.ActivateRPS),
		a.Config.License.ActivateBurst,
	)
	licenseHandler := handlers.NewLicenseHandler(
		a.LicenseService, a.Logger, limiter, a.Config.License.RevokeSecret)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Mount("/license", licenseHandler.Routes())

		// Parish resource routes sit behind the license gate; an
		// expired or revoked deployment gets a problem response with
		// activation instructions instead.
		gate := custommw.NewLicenseGate(a.LicenseService, a.Logger)
		r.Group(func(r chi.Router) {
			r.Use(gate.Handler)
			r.Get("/members", placeholderHandler("members"))
			r.Get("/contributions", placeholderHandler("contributions"))
		})
	})

	a.Router = r
}

// placeholderHandler stands in for the parish modules mounted by the
// wider system. They exist here so the license gate has protected
// routes to cover in this service's own tests and deployments.
func placeholderHandler(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]interface{}{
			"resource": resource,
			"items":    []interface{}{},
		})
	}
}

// Run starts the HTTP server and blocks until a shutdown signal or a
// fatal server error.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Stop()
	})

	return g.Wait()
}

// Stop gracefully shuts the service down.
func (a *Application) Stop() error {
	a.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("observability shutdown failed", slog.String("error", err.Error()))
		}
	}

	a.Logger.Info("shutdown complete")
	return nil
}
