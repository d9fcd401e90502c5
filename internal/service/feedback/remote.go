package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"scriptmentor/internal/domain/models"
	domainllm "scriptmentor/internal/domain/services/llm"
	"scriptmentor/internal/service/llm"
)

// GenerationRequest is the payload of one remote feedback call.
type GenerationRequest struct {
	SceneContent     string
	MentorID         string
	CharacterContext string
	FeedbackMode     models.FeedbackMode
	SystemPrompt     string
	Temperature      float64
}

// GenerationResult is the endpoint's reply. Success false with no error
// means the endpoint answered but produced nothing usable.
type GenerationResult struct {
	Success  bool
	Feedback string
}

// RemoteGenerator is one remote feedback capability.
type RemoteGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// structuredReply is the JSON shape requested from providers with native
// structured output.
type structuredReply struct {
	Structure string `json:"structure" jsonschema:"description=Scene construction and turns and causality"`
	Dialogue  string `json:"dialogue" jsonschema:"description=Voice and subtext and the dialogue to action balance"`
	Pacing    string `json:"pacing" jsonschema:"description=Length and escalation and where the scene enters and exits"`
	Theme     string `json:"theme" jsonschema:"description=What the scene says about the story's central question"`
}

// LLMGenerator sends generation requests to a model through a TextGenerator.
type LLMGenerator struct {
	gen       domainllm.TextGenerator
	model     string
	maxTokens int
	schema    map[string]interface{}
}

// LLMGeneratorOptions configures an LLMGenerator.
type LLMGeneratorOptions struct {
	MaxTokens int
	// StructuredJSON asks for structured feedback as schema-constrained JSON
	// and renders it back to markdown sections.
	StructuredJSON bool
}

// NewLLMGenerator creates a remote generator for one model
func NewLLMGenerator(gen domainllm.TextGenerator, model string, opts LLMGeneratorOptions) (*LLMGenerator, error) {
	if gen == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	g := &LLMGenerator{gen: gen, model: model, maxTokens: opts.MaxTokens}
	if opts.StructuredJSON {
		schema, err := llm.GenerateSchema[structuredReply]()
		if err != nil {
			return nil, fmt.Errorf("build feedback schema: %w", err)
		}
		g.schema = schema
	}
	return g, nil
}

// Generate implements RemoteGenerator.
func (g *LLMGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	temperature := req.Temperature
	creq := &domainllm.CompletionRequest{
		Model:       g.model,
		System:      req.SystemPrompt,
		Prompt:      userPrompt(req),
		Temperature: &temperature,
		MaxTokens:   g.maxTokens,
	}

	structured := g.schema != nil && req.FeedbackMode == models.ModeStructured
	if structured {
		creq.Output = &domainllm.OutputSchema{
			Name:        "scene_feedback",
			Description: "Mentor feedback on one screenplay scene, one field per category",
			Schema:      g.schema,
		}
	}

	resp, err := g.gen.Complete(ctx, creq)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Text)
	if structured {
		text, err = renderStructuredReply(text)
		if err != nil {
			return nil, err
		}
	}
	return &GenerationResult{Success: text != "", Feedback: text}, nil
}

func renderStructuredReply(raw string) (string, error) {
	var reply structuredReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return "", fmt.Errorf("decode structured feedback: %w", err)
	}
	return sections{
		Structure: strings.TrimSpace(reply.Structure),
		Dialogue:  strings.TrimSpace(reply.Dialogue),
		Pacing:    strings.TrimSpace(reply.Pacing),
		Theme:     strings.TrimSpace(reply.Theme),
	}.render(), nil
}
