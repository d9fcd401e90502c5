package llm

import (
	"fmt"
	"strings"
)

// ModelInfo contains parsed provider and model information
type ModelInfo struct {
	Provider string // Provider name: "anthropic", "openai", "lorem"
	Model    string // Model identifier for that provider
}

// String returns the canonical "provider/model" form
func (m ModelInfo) String() string {
	return m.Provider + "/" + m.Model
}

// ParseModel extracts provider information from a model string
//
// Supported formats:
//   - "claude-haiku-4-5" → {Provider: "anthropic", Model: "claude-haiku-4-5"}
//   - "gpt-4o-mini" → {Provider: "openai", Model: "gpt-4o-mini"}
//   - "lorem-fast" → {Provider: "lorem", Model: "lorem-fast"}
//   - "openai/gpt-4o-mini" → {Provider: "openai", Model: "gpt-4o-mini"}
//
// Rules:
//   - If model contains "/" → split on first "/" to extract provider
//   - Else → infer provider from model prefix
func ParseModel(modelStr string) (*ModelInfo, error) {
	modelStr = strings.TrimSpace(modelStr)
	if modelStr == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	if provider, model, ok := strings.Cut(modelStr, "/"); ok {
		if provider == "" {
			return nil, fmt.Errorf("provider cannot be empty in model string: %s", modelStr)
		}
		if model == "" {
			return nil, fmt.Errorf("model cannot be empty in model string: %s", modelStr)
		}
		return &ModelInfo{Provider: strings.ToLower(provider), Model: model}, nil
	}

	provider := inferProvider(modelStr)
	if provider == "" {
		return nil, fmt.Errorf("unable to infer provider from model: %s", modelStr)
	}

	return &ModelInfo{
		Provider: provider,
		Model:    modelStr,
	}, nil
}

// inferProvider infers the provider from model name prefix
func inferProvider(model string) string {
	modelLower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(modelLower, "claude-"):
		return "anthropic"
	case strings.HasPrefix(modelLower, "gpt-"),
		strings.HasPrefix(modelLower, "o1-"),
		strings.HasPrefix(modelLower, "o3-"),
		strings.HasPrefix(modelLower, "o4-"):
		return "openai"
	case strings.HasPrefix(modelLower, "lorem-"):
		return "lorem"
	}

	return ""
}
