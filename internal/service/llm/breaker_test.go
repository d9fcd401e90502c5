package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	domainllm "scriptmentor/internal/domain/services/llm"
)

type failingGenerator struct {
	calls int
}

func (g *failingGenerator) Name() string { return "failing" }

func (g *failingGenerator) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.Completion, error) {
	g.calls++
	return nil, errors.New("upstream 500")
}

func TestBreakerGeneratorOpens(t *testing.T) {
	next := &failingGenerator{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := NewBreakerGenerator("test", next, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, logger)

	for i := 0; i < 2; i++ {
		if _, err := b.Complete(context.Background(), &domainllm.CompletionRequest{}); err == nil {
			t.Fatal("Complete() expected error")
		}
	}

	_, err := b.Complete(context.Background(), &domainllm.CompletionRequest{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Complete() after trips error = %v, want ErrOpenState", err)
	}
	if next.calls != 2 {
		t.Errorf("underlying generator called %d times, want 2", next.calls)
	}
	if b.State() != "open" {
		t.Errorf("State() = %q, want open", b.State())
	}
}

func TestBreakerGeneratorPassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := NewBreakerGenerator("ok", &stubGenerator{name: "lorem"}, BreakerSettings{}, logger)

	got, err := b.Complete(context.Background(), &domainllm.CompletionRequest{Model: "lorem-fast"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != "lorem:lorem-fast" {
		t.Errorf("Complete() = %q", got.Text)
	}
}
