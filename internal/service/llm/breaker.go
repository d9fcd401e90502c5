package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	domainllm "scriptmentor/internal/domain/services/llm"
)

// BreakerSettings tunes a circuit breaker around one generator.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a probe
	OpenTimeout time.Duration
}

// DefaultBreakerSettings trips after 3 consecutive failures for 30 seconds.
var DefaultBreakerSettings = BreakerSettings{ConsecutiveFailures: 3, OpenTimeout: 30 * time.Second}

// BreakerGenerator fails fast while its provider keeps failing, so callers
// fall through to their next option without waiting on a timeout.
type BreakerGenerator struct {
	next domainllm.TextGenerator
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerGenerator wraps next in a named circuit breaker
func NewBreakerGenerator(name string, next domainllm.TextGenerator, settings BreakerSettings, logger *slog.Logger) *BreakerGenerator {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings.ConsecutiveFailures
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultBreakerSettings.OpenTimeout
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("generation circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &BreakerGenerator{next: next, cb: cb}
}

// Name returns the wrapped provider's name.
func (b *BreakerGenerator) Name() string {
	return b.next.Name()
}

// State reports the breaker state, for health output
func (b *BreakerGenerator) State() string {
	return b.cb.State().String()
}

// Complete implements TextGenerator.
func (b *BreakerGenerator) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.Completion, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domainllm.Completion), nil
}
