package adapters

import (
	"context"
	"errors"
	"fmt"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/anthropic"
	"github.com/haowjy/meridian-llm-go/providers/lorem"

	domainllm "scriptmentor/internal/domain/services/llm"
)

// LibraryAdapter wraps a meridian-llm-go provider and implements TextGenerator.
type LibraryAdapter struct {
	provider llmprovider.Provider
}

// NewAnthropicAdapter creates an adapter over the library's Anthropic provider.
func NewAnthropicAdapter(apiKey string) (*LibraryAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}
	provider, err := anthropic.NewProvider(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}
	return &LibraryAdapter{provider: provider}, nil
}

// NewLoremAdapter creates an adapter over the library's Lorem mock provider.
// It needs no API key and is used in development.
func NewLoremAdapter() *LibraryAdapter {
	return &LibraryAdapter{provider: lorem.NewProvider()}
}

// NewLibraryAdapter wraps an existing provider.
func NewLibraryAdapter(provider llmprovider.Provider) *LibraryAdapter {
	return &LibraryAdapter{provider: provider}
}

// Name returns the provider name.
func (a *LibraryAdapter) Name() string {
	return a.provider.Name().String()
}

// Complete implements TextGenerator.
func (a *LibraryAdapter) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.Completion, error) {
	if !a.provider.SupportsModel(req.Model) {
		return nil, fmt.Errorf("provider %s does not support model %s", a.Name(), req.Model)
	}

	resp, err := a.provider.GenerateResponse(ctx, toLibraryRequest(req))
	if err != nil {
		return nil, err
	}
	return fromLibraryResponse(resp), nil
}
