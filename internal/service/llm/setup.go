package llm

import (
	"fmt"
	"log/slog"

	"scriptmentor/internal/config"
)

// DevModel is used for every tier when no provider key is configured and
// debug mode is on.
const DevModel = "lorem/lorem-fast"

// TierModel is one configured remote tier: a resolved model behind its own
// circuit breaker.
type TierModel struct {
	Tier      string
	Provider  string
	Model     string
	Generator *BreakerGenerator
}

// SetupProviders initializes the provider factory and registry for routing.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*ProviderRegistry, error) {
	registry := NewProviderRegistry(NewProviderFactory(cfg))
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("provider registry validation failed: %w", err)
	}

	if cfg.AnthropicAPIKey != "" {
		logger.Info("provider available", "name", "anthropic", "models", "claude-*")
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set - Anthropic provider not available")
	}
	if cfg.OpenAIAPIKey != "" {
		logger.Info("provider available", "name", "openai", "models", "gpt-*, o1-*, o3-*, o4-*")
	} else {
		logger.Warn("OPENAI_API_KEY not set - OpenAI provider not available")
	}

	return registry, nil
}

// SetupTiers resolves the enhanced and basic models in fallback order. A
// tier whose provider cannot be created is skipped with a warning; feedback
// then falls through to the next tier or to local synthesis.
func SetupTiers(cfg *config.Config, providers ProviderSource, logger *slog.Logger) []TierModel {
	registry, ok := providers.(*ProviderRegistry)
	if !ok {
		registry = NewProviderRegistry(providers)
	}

	specs := []struct{ tier, model string }{
		{"enhanced", cfg.EnhancedModel},
		{"basic", cfg.BasicModel},
	}
	if cfg.Debug && cfg.AnthropicAPIKey == "" && cfg.OpenAIAPIKey == "" {
		logger.Info("no provider keys set, using dev model for remote tiers", "model", DevModel)
		specs = []struct{ tier, model string }{{"enhanced", DevModel}}
	}

	var tiers []TierModel
	for _, spec := range specs {
		if spec.model == "" {
			continue
		}
		tm, err := resolveTier(registry, spec.tier, spec.model, logger)
		if err != nil {
			logger.Warn("feedback tier disabled", "tier", spec.tier, "model", spec.model, "error", err)
			continue
		}
		logger.Info("feedback tier ready", "tier", tm.Tier, "provider", tm.Provider, "model", tm.Model)
		tiers = append(tiers, *tm)
	}
	return tiers
}

func resolveTier(registry *ProviderRegistry, tier, modelStr string, logger *slog.Logger) (*TierModel, error) {
	info, err := ParseModel(modelStr)
	if err != nil {
		return nil, err
	}
	generator, err := registry.GetProvider(info.Provider)
	if err != nil {
		return nil, err
	}
	return &TierModel{
		Tier:      tier,
		Provider:  info.Provider,
		Model:     info.Model,
		Generator: NewBreakerGenerator(tier+"/"+info.String(), generator, DefaultBreakerSettings, logger),
	}, nil
}
