package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/deviceline/inventory/internal/adapter/deviceauth"
	invhttp "github.com/deviceline/inventory/internal/adapter/http"
	invnats "github.com/deviceline/inventory/internal/adapter/nats"
	"github.com/deviceline/inventory/internal/adapter/otel"
	"github.com/deviceline/inventory/internal/adapter/postgres"
	"github.com/deviceline/inventory/internal/adapter/ristretto"
	"github.com/deviceline/inventory/internal/config"
	"github.com/deviceline/inventory/internal/logger"
	"github.com/deviceline/inventory/internal/middleware"
	"github.com/deviceline/inventory/internal/resilience"
	"github.com/deviceline/inventory/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg, os.Args[2:]); err != nil {
			slog.Error("migrate failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	// Tenant registry migrations, then the default namespace.
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	dataStore := postgres.NewStore(pool)
	if err := dataStore.MigrateTenant(ctx, ""); err != nil {
		return fmt.Errorf("default namespace migration: %w", err)
	}
	slog.Info("migrations applied", "schema_version", postgres.SchemaVersion)

	// NATS JetStream for device change events. The service stays up without
	// it; writes then skip event publishing.
	var bus *invnats.Publisher
	bus, err = invnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, device events disabled", "error", err)
		bus = nil
	} else {
		defer func() { _ = bus.Close() }()
	}

	// OTel metrics
	var metrics *otel.Metrics
	if cfg.OTel.Enabled {
		shutdown, err := otel.InitMeter(ctx, cfg.Logging.Service, cfg.OTel.Endpoint)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
		metrics, err = otel.NewMetrics()
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
	}

	// Auth validator client with breaker and verdict cache.
	verdictCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("verdict cache: %w", err)
	}
	defer verdictCache.Close()

	authClient := deviceauth.NewClient(cfg.Auth.VerifyURL, cfg.Auth.Timeout)
	authClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	invSvc := newInventoryService(dataStore, bus, metrics)
	tenantSvc := service.NewTenantService(dataStore, slog.Default())
	verifySvc := service.NewAuthVerifyService(authClient, verdictCache, cfg.Cache.VerdictTTL, slog.Default())

	// --- HTTP ---
	handlers := invhttp.NewHandlers(invSvc, tenantSvc, verifySvc, cfg.Limits, slog.Default())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(invhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(invhttp.SecurityHeaders)
	r.Use(middleware.ExtractIdentity)
	if cfg.OTel.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}

	invhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// newInventoryService wires the inventory service, avoiding a typed-nil
// publisher interface when NATS is down.
func newInventoryService(ds *postgres.Store, bus *invnats.Publisher, metrics *otel.Metrics) *service.InventoryService {
	if bus == nil {
		return service.NewInventoryService(ds, nil, metrics, slog.Default())
	}
	return service.NewInventoryService(ds, bus, metrics, slog.Default())
}
