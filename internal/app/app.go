// Package app assembles the services shared by the server and the
// command-line tools.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"scriptmentor/internal/config"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/mentors"
	"scriptmentor/internal/service/chunking"
	"scriptmentor/internal/service/contentcrypto"
	"scriptmentor/internal/service/feedback"
	serviceLLM "scriptmentor/internal/service/llm"
	"scriptmentor/internal/service/review"
	"scriptmentor/internal/service/scripts"
	"scriptmentor/internal/service/tokens"
)

// App holds the wired services
type App struct {
	Storage  *Storage
	Chunker  *chunking.Chunker
	Mentors  *mentors.Registry
	Store    *scripts.Store
	Ledger   *tokens.Ledger
	Composer *feedback.Composer
	Reviews  *review.Service

	tasks *scripts.BackgroundRunner
}

// Open connects storage and builds every service on top of it
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	storage, err := OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	catalog, err := mentors.NewRegistry()
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("load mentors: %w", err)
	}
	if cfg.EncryptionPepper == "" {
		logger.Warn("ENCRYPTION_PEPPER not set - content keys derive from the user id alone")
	}

	chunker := chunking.New()
	tasks := scripts.NewBackgroundRunner(logger, 0)
	store := scripts.NewStore(
		storage.Scripts,
		contentcrypto.New(contentcrypto.Config{
			Iterations: cfg.EncryptionIterations,
			Pepper:     cfg.EncryptionPepper,
		}),
		chunker,
		tasks,
		logger,
	)
	ledger := tokens.NewLedger(storage.Tokens, storage.TxManager, logger, tokens.LogObserver{Logger: logger})

	tiers, err := FeedbackTiers(cfg, logger)
	if err != nil {
		tasks.Close()
		storage.Close()
		return nil, err
	}
	composer := feedback.NewComposer(catalog, logger, tiers...)

	return &App{
		Storage:  storage,
		Chunker:  chunker,
		Mentors:  catalog,
		Store:    store,
		Ledger:   ledger,
		Composer: composer,
		Reviews:  review.NewService(store, composer, ledger, logger),
		tasks:    tasks,
	}, nil
}

// Close waits for background writes and releases the database
func (a *App) Close() {
	a.tasks.Close()
	a.Storage.Close()
}

// FeedbackTiers builds the remote fallback chain from the configured
// models. An empty chain means feedback is always synthesized locally.
func FeedbackTiers(cfg *config.Config, logger *slog.Logger) ([]feedback.Tier, error) {
	registry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		return nil, err
	}

	var tiers []feedback.Tier
	for _, tm := range serviceLLM.SetupTiers(cfg, registry, logger) {
		source := models.SourceBasic
		if tm.Tier == "enhanced" {
			source = models.SourceEnhanced
		}
		gen, err := feedback.NewLLMGenerator(tm.Generator, tm.Model, feedback.LLMGeneratorOptions{
			// only openai gets a schema; the others answer under markdown section headers
			StructuredJSON: tm.Provider == "openai",
		})
		if err != nil {
			return nil, fmt.Errorf("%s tier: %w", tm.Tier, err)
		}
		tiers = append(tiers, feedback.Tier{
			Source:     source,
			Provider:   tm.Provider,
			Generator:  gen,
			Timeout:    cfg.RemoteTierTimeout,
			Scratchpad: source == models.SourceEnhanced,
		})
	}
	if len(tiers) == 0 {
		logger.Warn("no remote feedback tiers configured - using local synthesis only")
	}
	return tiers, nil
}
