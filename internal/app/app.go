// Package app wires configuration to adapters and lifecycle orchestration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/extract"
	"NewsletterCurator/internal/infrastructure/extractor"
	"NewsletterCurator/internal/infrastructure/llm"
	"NewsletterCurator/internal/infrastructure/notion"
	"NewsletterCurator/internal/infrastructure/scheduler"
	"NewsletterCurator/internal/infrastructure/storage"
	"NewsletterCurator/internal/infrastructure/telegram"
	"NewsletterCurator/internal/logging"
	"NewsletterCurator/internal/ports"
	"NewsletterCurator/internal/usecase"
)

// Application owns the wired pipeline and its recurring scheduler.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	store     *storage.DigestStore
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance from config.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := extract.NewRegistry()
	registry.Register(extractor.NewGenericExtractor())

	source := extractor.NewStrategySource(registry, cfg.Sources, logging.Component(baseLogger, "source"))
	vault := notion.NewVaultSource(cfg.Vault.APIKey, cfg.Vault.Collections, logging.Component(baseLogger, "vault"))

	judge, err := buildJudge(cfg.LLM)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
	}
	store := storage.NewDigestStore(db)

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		tg, err := telegram.NewNotifier(cfg.Notifications.Telegram)
		if err != nil {
			baseLogger.Warn("telegram disabled", "error", err)
		} else {
			notifier = tg
		}
	}

	// Both judge backends also implement the listicle extraction call.
	listExtractor, _ := judge.(ports.ListExtractor)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:    source,
		Vault:     vault,
		Judge:     judge,
		Extractor: listExtractor,
		Store:     store,
		Notifier:  notifier,
		Config:    cfg,
		Logger:    logging.Component(baseLogger, "pipeline"),
	})

	driver := scheduler.NewTickerScheduler(cfg.Scheduler.Interval.Std())

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		store:     store,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(driver, pipeline, logging.Component(baseLogger, "scheduler")),
	}, nil
}

func buildJudge(cfg config.LLMConfig) (ports.Judge, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, nil
	}

	switch cfg.Backend {
	case "anthropic":
		return llm.NewAnthropicJudge(cfg), nil
	case "", "openai":
		return llm.NewOpenAIJudge(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}

// Run migrates storage, starts the scheduler, and blocks until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if a.store != nil {
		if err := a.store.Migrate(ctx); err != nil {
			return err
		}
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("curator started", "interval", a.cfg.Scheduler.Interval.Std().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return err
	}
	if a.db != nil {
		_ = a.db.Close()
	}

	return nil
}

// RunOnce executes a single curation cycle and exits.
func (a *Application) RunOnce(ctx context.Context) error {
	if a.store != nil {
		if err := a.store.Migrate(ctx); err != nil {
			return err
		}
	}

	now := time.Now().In(a.cfg.Scheduler.Location())
	stats, err := a.pipeline.ProcessBatch(ctx, now)
	if err != nil {
		return err
	}

	a.logger.Info("run finished",
		"run_id", stats.RunID,
		"extracted", stats.ItemsExtracted,
		"invalid", stats.ItemsInvalid,
		"scored", stats.ItemsScored,
	)
	return nil
}
