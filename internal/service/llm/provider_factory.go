package llm

import (
	"fmt"

	"scriptmentor/internal/config"
	domainllm "scriptmentor/internal/domain/services/llm"
	"scriptmentor/internal/service/llm/adapters"
)

// ProviderFactory creates text generators by provider name
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
	}
}

// GetProvider returns a generator for the given provider name
//
// Supported providers:
//   - "anthropic" - Claude models via meridian-llm-go
//   - "openai" - OpenAI models via the Responses API
//   - "lorem" - Mock provider for development (no API key required)
func (f *ProviderFactory) GetProvider(providerName string) (domainllm.TextGenerator, error) {
	switch providerName {
	case "anthropic":
		return adapters.NewAnthropicAdapter(f.config.AnthropicAPIKey)

	case "openai":
		return adapters.NewOpenAIAdapter(f.config.OpenAIAPIKey)

	case "lorem":
		return adapters.NewLoremAdapter(), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}
