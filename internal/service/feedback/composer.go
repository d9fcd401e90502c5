// Package feedback composes mentor feedback for scenes, blends and chunked
// scripts. Remote tiers are tried in order and local synthesis always
// answers last.
package feedback

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"scriptmentor/internal/config"
	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
)

// DefaultTierTimeout bounds one remote call when a tier sets no timeout.
const DefaultTierTimeout = 25 * time.Second

var errEmptyFeedback = errors.New("generator returned no feedback")

// MentorSource looks up mentors by id.
type MentorSource interface {
	Get(id string) (models.Mentor, error)
}

// Tier is one remote step of the fallback chain.
type Tier struct {
	Source    models.FeedbackSource
	Provider  string
	Generator RemoteGenerator
	Timeout   time.Duration

	// Scratchpad requests scratchpad notes from this tier as well. Otherwise
	// they are derived locally from the scene.
	Scratchpad bool
}

func (t Tier) timeout() time.Duration {
	if t.Timeout <= 0 {
		return DefaultTierTimeout
	}
	return t.Timeout
}

// Composer produces Feedback. It is safe for concurrent use.
type Composer struct {
	mentors     MentorSource
	tiers       []Tier
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// NewComposer creates a composer that tries tiers in the given order
func NewComposer(mentors MentorSource, logger *slog.Logger, tiers ...Tier) *Composer {
	return &Composer{
		mentors:     mentors,
		tiers:       tiers,
		concurrency: config.ChunkFeedbackConcurrency,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// SingleRequest asks one mentor for feedback on one scene or chunk.
type SingleRequest struct {
	TargetID     string
	SceneContent string
	MentorID     string
	Characters   map[string]models.Character
	// CharacterNames limits the character context; nil means all characters
	CharacterNames []string
}

// BlendRequest asks for one blended voice across weighted mentors.
type BlendRequest struct {
	TargetID       string
	SceneContent   string
	Mentors        []models.MentorWeight
	Characters     map[string]models.Character
	CharacterNames []string
}

// Generate returns single-mentor feedback. Only an unknown mentor is an
// error; remote failures fall through to local synthesis.
func (c *Composer) Generate(ctx context.Context, req SingleRequest) (*models.Feedback, error) {
	mentor, err := c.mentors.Get(req.MentorID)
	if err != nil {
		return nil, err
	}

	gen := GenerationRequest{
		SceneContent:     req.SceneContent,
		MentorID:         mentor.ID,
		CharacterContext: characterContext(req.Characters, req.CharacterNames),
		SystemPrompt:     mentorSystemPrompt(mentor),
	}
	if structured, scratchpad, source, ok := c.runRemote(ctx, gen); ok {
		if scratchpad == "" {
			scratchpad = localScratchpad(mentor, analyzeScene(req.SceneContent))
		}
		return c.feedback(mentor.ID, req.TargetID, structured, scratchpad, source), nil
	}

	structured, scratchpad := localSingle(mentor, req.SceneContent)
	return c.feedback(mentor.ID, req.TargetID, structured, scratchpad, models.SourceLocal), nil
}

// GenerateBlended returns one feedback shaped by several mentors in
// proportion to their weights.
func (c *Composer) GenerateBlended(ctx context.Context, req BlendRequest) (*models.Feedback, error) {
	b, err := newBlend(req.Mentors, c.mentors.Get)
	if err != nil {
		return nil, err
	}
	return c.generateBlend(ctx, b, req), nil
}

func (c *Composer) generateBlend(ctx context.Context, b *blend, req BlendRequest) *models.Feedback {
	gen := GenerationRequest{
		SceneContent:     req.SceneContent,
		MentorID:         models.BlendedMentorID,
		CharacterContext: characterContext(req.Characters, req.CharacterNames),
		SystemPrompt:     blendSystemPrompt(b),
	}

	var fb *models.Feedback
	if structured, scratchpad, source, ok := c.runRemote(ctx, gen); ok {
		if scratchpad == "" {
			_, scratchpad = localBlend(b, req.SceneContent)
		}
		fb = c.feedback(models.BlendedMentorID, req.TargetID, structured, scratchpad, source)
	} else {
		structured, scratchpad := localBlend(b, req.SceneContent)
		fb = c.feedback(models.BlendedMentorID, req.TargetID, structured, scratchpad, models.SourceLocal)
	}
	fb.Blend = b.influences()
	return fb
}

func (c *Composer) feedback(mentorID, targetID, structured, scratchpad string, source models.FeedbackSource) *models.Feedback {
	return &models.Feedback{
		ID:                c.newID(),
		MentorID:          mentorID,
		SceneOrScriptID:   targetID,
		StructuredContent: structured,
		ScratchpadContent: scratchpad,
		Categories:        ExtractCategories(structured),
		Timestamp:         c.now().UTC(),
		Source:            source,
		Content:           structured,
	}
}

// runRemote walks the remote tiers. ok is false when every tier failed or
// there is nothing to send.
func (c *Composer) runRemote(ctx context.Context, req GenerationRequest) (structured, scratchpad string, source models.FeedbackSource, ok bool) {
	if strings.TrimSpace(req.SceneContent) == "" {
		return "", "", "", false
	}

	for _, tier := range c.tiers {
		structured, scratchpad, err := c.tryTier(ctx, tier, req)
		if err == nil {
			return structured, scratchpad, tier.Source, true
		}
		c.logger.Warn("feedback tier failed, falling back",
			"tier", tier.Source,
			"mentor_id", req.MentorID,
			"error", err,
		)
		if ctx.Err() != nil {
			break
		}
	}
	return "", "", "", false
}

func (c *Composer) tryTier(ctx context.Context, tier Tier, req GenerationRequest) (string, string, error) {
	req.FeedbackMode = models.ModeStructured
	req.Temperature = structuredTemperature
	structured, err := c.call(ctx, tier, req)
	if err != nil {
		return "", "", &domain.RemoteGenerationError{Tier: string(tier.Source), Provider: tier.Provider, Cause: err}
	}
	if !tier.Scratchpad {
		return structured, "", nil
	}

	req.FeedbackMode = models.ModeScratchpad
	req.Temperature = scratchpadTemperature
	scratchpad, err := c.call(ctx, tier, req)
	if err != nil {
		c.logger.Warn("scratchpad generation failed, deriving locally",
			"tier", tier.Source,
			"mentor_id", req.MentorID,
			"error", err,
		)
		return structured, "", nil
	}
	return structured, scratchpad, nil
}

type callResult struct {
	res *GenerationResult
	err error
}

// call runs one generation under the tier timeout. It returns when the
// timeout fires even if the generator ignores its context.
func (c *Composer) call(ctx context.Context, tier Tier, req GenerationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, tier.timeout())
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		res, err := tier.Generator.Generate(ctx, req)
		done <- callResult{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		if r.res == nil || !r.res.Success || strings.TrimSpace(r.res.Feedback) == "" {
			return "", errEmptyFeedback
		}
		return strings.TrimSpace(r.res.Feedback), nil
	}
}
