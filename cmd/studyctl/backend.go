package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-study/internal/ai"
	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/plan"
	"github.com/p-n-ai/pai-study/internal/planner"
	"github.com/p-n-ai/pai-study/internal/platform/config"
	"github.com/p-n-ai/pai-study/internal/platform/database"
	"github.com/p-n-ai/pai-study/internal/priority"
	"github.com/p-n-ai/pai-study/internal/progress"
)

// loadConfig reads the LEARN_ environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("curriculum"); v != "" {
		cfg.CurriculumPath = v
	}
	if v, _ := cmd.Flags().GetString("database-url"); v != "" {
		cfg.Database.URL = v
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*curriculum.Catalog, error) {
	catalog, err := curriculum.Load(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("curriculum %s: %w", cfg.CurriculumPath, err)
	}
	return catalog, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("a database URL is required (--database-url or LEARN_DATABASE_URL)")
	}
	return database.New(ctx, cfg.Database.URL, 2, 1)
}

// backend is the service graph the plan and recommend commands share. It
// reads and writes the same tables as the server but skips the cache. The
// AI token budget is per process.
type backend struct {
	db          *database.DB
	catalog     *curriculum.Catalog
	progress    *progress.Service
	recommender *priority.Recommender
	plans       *plan.Service
	generator   *plan.Generator
}

func openBackend(ctx context.Context, cmd *cobra.Command) (*backend, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	progressStore, err := progress.NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	planStore, err := plan.NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	prog := progress.NewService(progressStore, catalog, nil)
	rec := priority.NewRecommender(catalog, prog, nil)
	plans := plan.NewService(planStore, catalog)

	var assisted plan.Drafter
	if cfg.HasAIProvider() {
		router, err := ai.NewRouterFromConfig(ctx, cfg.AI)
		if err != nil {
			db.Close()
			return nil, err
		}
		assisted = planner.NewAssistant(catalog, router, ai.NewInMemoryBudget(int64(cfg.AI.DailyTokenBudget)), planner.AssistantConfig{
			Timeout:  cfg.AI.Timeout,
			Total:    cfg.AI.TotalTimeout,
			Attempts: cfg.AI.Attempts,
		})
	}
	return &backend{
		db:          db,
		catalog:     catalog,
		progress:    prog,
		recommender: rec,
		plans:       plans,
		generator:   plan.NewGenerator(plans, catalog, prog, rec, assisted),
	}, nil
}

func (b *backend) Close() { b.db.Close() }
