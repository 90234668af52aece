// Package main is the entrypoint for the rpohub API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/rpohub/internal/admin"
	"github.com/kiranshivaraju/rpohub/internal/analytics"
	"github.com/kiranshivaraju/rpohub/internal/api"
	"github.com/kiranshivaraju/rpohub/internal/api/handler"
	mw "github.com/kiranshivaraju/rpohub/internal/api/middleware"
	"github.com/kiranshivaraju/rpohub/internal/api/response"
	"github.com/kiranshivaraju/rpohub/internal/cache"
	"github.com/kiranshivaraju/rpohub/internal/config"
	"github.com/kiranshivaraju/rpohub/internal/content"
	"github.com/kiranshivaraju/rpohub/internal/events"
	"github.com/kiranshivaraju/rpohub/internal/lifecycle"
	"github.com/kiranshivaraju/rpohub/internal/metrics"
	"github.com/kiranshivaraju/rpohub/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 30 * time.Second
	dispatchTimeout = 15 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"content_provider", cfg.Content.Provider,
		"events_sink", cfg.Events.Sink,
		"env", cfg.Server.Env,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied", "dir", cfg.Database.MigrationsDir)

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create content generator
	generator, err := content.NewGenerator(cfg.Content)
	if err != nil {
		return fmt.Errorf("create content generator: %w", err)
	}
	slog.Info("content generator initialized", "provider", generator.Name())

	// 6. Events
	dispatcher, err := events.NewDispatcher(cfg.Events)
	if err != nil {
		return fmt.Errorf("create event dispatcher: %w", err)
	}
	defer dispatcher.Close()

	m := metrics.New()
	emitter := events.NewEmitter(dispatcher, m, dispatchTimeout)

	// 7. Services
	pgStore := store.NewPostgresStore(pool)
	lifecycleSvc := lifecycle.NewService(pgStore, emitter, m)
	analyticsSvc := analytics.NewService(pgStore, redisCache, cfg.Analytics.CacheTTL)
	contentSvc := content.NewService(generator, pgStore, redisCache, emitter, m, cfg.Content.Timeout)
	adminSvc := admin.NewService(pgStore)

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute),
		Metrics:   m,

		HealthHandler:  healthHandler(pgStore, redisCache),
		MetricsHandler: m.Handler(),

		ListApprovals:    handler.NewListApprovalsHandler(lifecycleSvc),
		ApproveHandler:   handler.NewApproveHandler(lifecycleSvc),
		RejectHandler:    handler.NewRejectHandler(lifecycleSvc),
		PortalJob:        handler.NewPortalJobHandler(lifecycleSvc),
		AnalyticsHandler: handler.NewAnalyticsHandler(analyticsSvc),

		CreateJob:         handler.NewCreateJobHandler(lifecycleSvc),
		StaffJob:          handler.NewStaffJobHandler(lifecycleSvc),
		TriggerGeneration: handler.NewTriggerGenerationHandler(contentSvc),
		GenerationStatus:  handler.NewGenerationStatusHandler(contentSvc),
		SubmitForApproval: handler.NewSubmitHandler(lifecycleSvc),
		TransitionJob:     handler.NewTransitionHandler(lifecycleSvc),

		CreateCustomer:   handler.NewCreateCustomerHandler(adminSvc),
		ListCustomers:    handler.NewListCustomersHandler(adminSvc),
		CreateUser:       handler.NewCreateUserHandler(adminSvc),
		CreateKeyHandler: handler.NewCreateKeyHandler(adminSvc),
		ListKeysHandler:  handler.NewListKeysHandler(adminSvc),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(adminSvc),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()

	// Generations still running write their results before events are drained.
	contentSvc.Wait()
	emitter.Wait()

	if err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
