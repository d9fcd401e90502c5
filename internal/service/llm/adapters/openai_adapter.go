package adapters

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	domainllm "scriptmentor/internal/domain/services/llm"
)

// OpenAIAdapter calls the OpenAI Responses API. Structured output requests
// use native strict JSON schema formatting.
type OpenAIAdapter struct {
	client *openai.Client
}

// NewOpenAIAdapter creates an adapter with its own client.
func NewOpenAIAdapter(apiKey string, opts ...option.RequestOption) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIAdapter{client: &client}, nil
}

// Name returns the provider name.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Complete implements TextGenerator.
func (a *OpenAIAdapter) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.Completion, error) {
	params := responses.ResponseNewParams{
		Model: req.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.Output != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        req.Output.Name,
					Schema:      req.Output.Schema,
					Strict:      openai.Bool(true),
					Description: openai.String(req.Output.Description),
					Type:        "json_schema",
				},
			},
		}
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, err
	}

	return &domainllm.Completion{
		Text:         strings.TrimSpace(resp.OutputText()),
		Model:        string(resp.Model),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		StopReason:   string(resp.Status),
	}, nil
}
