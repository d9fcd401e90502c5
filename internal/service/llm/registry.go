package llm

import (
	"fmt"
	"sync"

	domainllm "scriptmentor/internal/domain/services/llm"
)

// ProviderSource creates generators by provider name. ProviderFactory is the
// production implementation.
type ProviderSource interface {
	GetProvider(providerName string) (domainllm.TextGenerator, error)
}

// ProviderRegistry caches one generator per provider and resolves
// "provider/model" strings to a generator plus model name.
type ProviderRegistry struct {
	factory ProviderSource
	cache   map[string]domainllm.TextGenerator
	mu      sync.RWMutex
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry(factory ProviderSource) *ProviderRegistry {
	return &ProviderRegistry{
		factory: factory,
		cache:   make(map[string]domainllm.TextGenerator),
	}
}

// GetProvider returns the cached generator for a provider, creating it on
// first use.
func (r *ProviderRegistry) GetProvider(provider string) (domainllm.TextGenerator, error) {
	if provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}

	// Fast path: check cache with read lock
	r.mu.RLock()
	if cached, exists := r.cache[provider]; exists {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have created the provider while we waited for the lock
	if cached, exists := r.cache[provider]; exists {
		return cached, nil
	}

	generator, err := r.factory.GetProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider '%s': %w", provider, err)
	}

	r.cache[provider] = generator
	return generator, nil
}

// Resolve parses a model string and returns its generator and bare model name
func (r *ProviderRegistry) Resolve(modelStr string) (domainllm.TextGenerator, string, error) {
	info, err := ParseModel(modelStr)
	if err != nil {
		return nil, "", err
	}
	generator, err := r.GetProvider(info.Provider)
	if err != nil {
		return nil, "", err
	}
	return generator, info.Model, nil
}

// Validate checks if the factory is properly configured.
// Should be called at startup to fail fast if misconfigured.
func (r *ProviderRegistry) Validate() error {
	if r.factory == nil {
		return fmt.Errorf("provider factory is not configured")
	}
	return nil
}
