package adapters

import (
	"encoding/json"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"

	domainllm "scriptmentor/internal/domain/services/llm"
)

const blockTypeText = "text"

// toLibraryRequest converts a completion request to a single-message
// library request
func toLibraryRequest(req *domainllm.CompletionRequest) *llmprovider.GenerateRequest {
	prompt := req.Prompt
	if req.Output != nil {
		prompt += "\n\n" + schemaInstruction(req.Output)
	}

	maxTokens := req.MaxTokens
	params := &llmprovider.RequestParams{
		MaxTokens:   &maxTokens,
		Temperature: req.Temperature,
	}
	if req.System != "" {
		system := req.System
		params.System = &system
	}

	return &llmprovider.GenerateRequest{
		Messages: []llmprovider.Message{
			{
				Role: "user",
				Blocks: []*llmprovider.Block{
					{BlockType: blockTypeText, Sequence: 0, TextContent: &prompt},
				},
			},
		},
		Model:  req.Model,
		Params: params,
	}
}

// fromLibraryResponse joins the text blocks of a library response
func fromLibraryResponse(resp *llmprovider.GenerateResponse) *domainllm.Completion {
	var parts []string
	for _, block := range resp.Blocks {
		if block.BlockType == blockTypeText && block.TextContent != nil {
			parts = append(parts, *block.TextContent)
		}
	}

	return &domainllm.Completion{
		Text:         strings.Join(parts, ""),
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		StopReason:   resp.StopReason,
	}
}

func schemaInstruction(out *domainllm.OutputSchema) string {
	schema, err := json.Marshal(out.Schema)
	if err != nil {
		return "Respond with a single JSON object."
	}
	return "Respond with a single JSON object and nothing else. It must match this JSON schema:\n" + string(schema)
}
