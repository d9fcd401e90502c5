package llm

import "context"

// TextGenerator is a single-turn completion backend. Adapters wrap the
// provider SDKs so feedback generation never depends on one vendor.
type TextGenerator interface {
	// Complete sends one prompt and returns the concatenated text output
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)

	// Name returns the provider name (e.g., "anthropic", "openai")
	Name() string
}

// CompletionRequest contains the parameters for one completion.
type CompletionRequest struct {
	// Model is the provider's model identifier, without the provider prefix
	Model string

	System string
	Prompt string

	// Temperature is left to the provider default when nil
	Temperature *float64

	MaxTokens int

	// Output requests JSON matching a schema. Providers without native
	// structured output receive the schema as an instruction instead.
	Output *OutputSchema
}

// OutputSchema describes a JSON response format.
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// Completion is the provider's response.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}
