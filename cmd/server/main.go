package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-study/internal/ai"
	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/drill"
	"github.com/p-n-ai/pai-study/internal/httpapi"
	"github.com/p-n-ai/pai-study/internal/plan"
	"github.com/p-n-ai/pai-study/internal/planner"
	"github.com/p-n-ai/pai-study/internal/platform/cache"
	"github.com/p-n-ai/pai-study/internal/platform/config"
	"github.com/p-n-ai/pai-study/internal/platform/database"
	"github.com/p-n-ai/pai-study/internal/platform/telemetry"
	"github.com/p-n-ai/pai-study/internal/priority"
	"github.com/p-n-ai/pai-study/internal/progress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Env, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newLogger builds the process logger from LEARN_LOG_LEVEL and
// LEARN_LOG_FORMAT.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// generateTimeout ends plan generation a second before the server's write
// timeout would drop the response.
func generateTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.WriteTimeout <= 0 {
		return 0
	}
	return max(cfg.Server.WriteTimeout-time.Second, 0)
}

// app holds the wired services and the connections to release on exit.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp connects to the configured backends and wires the services. An
// empty LEARN_DATABASE_URL keeps progress and plans in memory; an empty
// LEARN_CACHE_URL disables the recommendation cache and keeps the AI
// token budget in memory.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]httpapi.Checker{}

	catalog, err := curriculum.Load(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("curriculum: %w", err)
	}

	var (
		progressStore progress.Store = progress.NewMemoryStore()
		planStore     plan.Store     = plan.NewMemoryStore()
	)
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db

		applied, err := db.Migrate(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		slog.Info("database migrated", "applied", applied)

		if progressStore, err = progress.NewPostgresStore(db); err != nil {
			a.Close()
			return nil, err
		}
		if planStore, err = plan.NewPostgresStore(db); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		slog.Warn("LEARN_DATABASE_URL is empty, storing progress and plans in memory")
	}

	var (
		recCache priority.Cache   = priority.NopCache{}
		budget   ai.BudgetChecker = ai.NewInMemoryBudget(int64(cfg.AI.DailyTokenBudget))
	)
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c
		recCache = priority.NewRedisCache(c, cfg.Cache.RecommendationTTL)
		budget = ai.NewRedisBudget(c, int64(cfg.AI.DailyTokenBudget))
	}

	prog := progress.NewService(progressStore, catalog, recCache)
	rec := priority.NewRecommender(catalog, prog, recCache)
	plans := plan.NewService(planStore, catalog)

	var assisted plan.Drafter
	if cfg.HasAIProvider() {
		router, err := ai.NewRouterFromConfig(ctx, cfg.AI)
		if err != nil {
			a.Close()
			return nil, err
		}
		assisted = planner.NewAssistant(catalog, router, budget, planner.AssistantConfig{
			Timeout:  cfg.AI.Timeout,
			Total:    cfg.AI.TotalTimeout,
			Attempts: cfg.AI.Attempts,
		})
	}

	a.handler = httpapi.New(httpapi.Services{
		Catalog:     catalog,
		Progress:    prog,
		Recommender: rec,
		Plans:       plans,
		Generator:   plan.NewGenerator(plans, catalog, prog, rec, assisted),
		Drills:      drill.NewRunner(),
	}, httpapi.Options{
		Auth:            httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Checks:          checks,
		AssistDefault:   cfg.AI.AssistEnabled,
		GenerateTimeout: generateTimeout(cfg),
	})
	return a, nil
}
