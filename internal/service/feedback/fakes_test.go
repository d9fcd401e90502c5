package feedback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/mentors"
)

const testCatalog = `
defaults:
  structure: The scene has a clear spine.
  missing_heading: There is no scene heading, so the reader is lost.
  long_scene: The scene runs long and should be cut.
  short_scene: The scene is short but effective.
  heavy_dialogue: Too much talk carries the scene.
  light_dialogue: Nobody speaks much, which works here.
  dialogue: The dialogue balance is workable.
  crowded_scene: Too many voices crowd the room.
  pacing: The pacing is reasonable.
  theme: The theme is coming through.
  scratchpad: [default prompt]
mentors:
  alpha:
    name: Alpha
    tone: blunt
    priorities: [structure]
    advice:
      structure: Alpha says the structure is strong.
      short_scene: Alpha says the short scene lands well.
      theme: Alpha theme note is clear.
      scratchpad: [alpha prompt]
  beta:
    name: Beta
    tone: gentle
    advice:
      structure: Beta says the structure is strong too.
      dialogue: Beta says the dialogue crackles.
      short_scene: Beta says consider a longer beat.
      scratchpad: [beta prompt]
  gamma:
    name: Gamma
    advice:
      dialogue: Gamma says the dialogue is vivid.
`

const kitchenScene = `INT. KITCHEN - NIGHT

Rain against the window. MARA stirs a pot.

MARA
You're late.

JON
(shrugging)
Traffic.

Mara turns off the stove.`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMentors(t *testing.T) *mentors.Registry {
	t.Helper()
	r, err := mentors.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("mentors.Parse() error = %v", err)
	}
	return r
}

func newTestComposer(t *testing.T, tiers ...Tier) *Composer {
	t.Helper()
	c := NewComposer(testMentors(t), discardLogger(), tiers...)
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c
}

// scriptedGenerator answers each mode from a fixed table and records calls.
type scriptedGenerator struct {
	mu       sync.Mutex
	calls    []GenerationRequest
	replies  map[models.FeedbackMode]string
	err      error
	fail     bool // answer Success: false
	delay    time.Duration
	inFlight int
	maxSeen  int
}

func (g *scriptedGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.inFlight++
	if g.inFlight > g.maxSeen {
		g.maxSeen = g.inFlight
	}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	}()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	if g.fail {
		return &GenerationResult{Success: false}, nil
	}
	return &GenerationResult{Success: true, Feedback: g.replies[req.FeedbackMode]}, nil
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// stuckGenerator never returns until released, ignoring its context.
type stuckGenerator struct {
	release chan struct{}
}

func (g *stuckGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	<-g.release
	return nil, errors.New("released")
}

var errProviderDown = errors.New("provider down")

func failingTier(source models.FeedbackSource) (Tier, *scriptedGenerator) {
	g := &scriptedGenerator{err: errProviderDown}
	return Tier{Source: source, Provider: "test", Generator: g, Timeout: time.Second}, g
}
