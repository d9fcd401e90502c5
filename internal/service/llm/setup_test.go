package llm

import (
	"io"
	"log/slog"
	"testing"

	"scriptmentor/internal/config"
)

func TestSetupTiers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name      string
		cfg       config.Config
		wantTiers []string
		wantModel string
	}{
		{
			name:      "both tiers",
			cfg:       config.Config{AnthropicAPIKey: "k", OpenAIAPIKey: "k", EnhancedModel: "anthropic/claude-haiku-4-5", BasicModel: "gpt-4o-mini"},
			wantTiers: []string{"enhanced", "basic"},
			wantModel: "claude-haiku-4-5",
		},
		{
			name:      "provider failure skips tier",
			cfg:       config.Config{AnthropicAPIKey: "k", EnhancedModel: "broken/x", BasicModel: "openai/gpt-4o-mini"},
			wantTiers: []string{"basic"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "unparseable model skips tier",
			cfg:       config.Config{OpenAIAPIKey: "k", EnhancedModel: "mystery", BasicModel: "openai/gpt-4o-mini"},
			wantTiers: []string{"basic"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "debug without keys uses dev model",
			cfg:       config.Config{Debug: true, EnhancedModel: "anthropic/claude-haiku-4-5", BasicModel: "openai/gpt-4o-mini"},
			wantTiers: []string{"enhanced"},
			wantModel: "lorem-fast",
		},
		{
			name: "no models",
			cfg:  config.Config{AnthropicAPIKey: "k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &countingSource{calls: map[string]int{}}
			tiers := SetupTiers(&tt.cfg, source, logger)

			if len(tiers) != len(tt.wantTiers) {
				t.Fatalf("got %d tiers, want %v", len(tiers), tt.wantTiers)
			}
			for i, tier := range tiers {
				if tier.Tier != tt.wantTiers[i] {
					t.Errorf("tier %d = %s, want %s", i, tier.Tier, tt.wantTiers[i])
				}
				if tier.Generator == nil {
					t.Errorf("tier %s has no generator", tier.Tier)
				}
			}
			if len(tiers) > 0 && tiers[0].Model != tt.wantModel {
				t.Errorf("first model = %s, want %s", tiers[0].Model, tt.wantModel)
			}
		})
	}
}
