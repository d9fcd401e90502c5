package feedback

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
)

func testChunks() []models.ScriptChunk {
	long := strings.Repeat("The crowd surges forward.\n", 100)
	return []models.ScriptChunk{
		{ID: "c0", Title: "Pages 1-15", ChunkIndex: 0, Content: kitchenScene, CharacterNames: []string{"MARA"}},
		{ID: "c1", Title: "Pages 16-30", ChunkIndex: 1, Content: long},
		{ID: "c2", Title: "Pages 31-45", ChunkIndex: 2, Content: kitchenScene},
	}
}

func TestGenerateChunkedLocal(t *testing.T) {
	c := newTestComposer(t)

	fb, err := c.GenerateChunked(context.Background(), ChunkedRequest{
		ScriptID: "script-1",
		Chunks:   testChunks(),
		MentorID: "beta",
	})
	if err != nil {
		t.Fatalf("GenerateChunked() error = %v", err)
	}

	if !fb.IsChunked || fb.Source != models.SourceSummary || fb.SceneOrScriptID != "script-1" || fb.MentorID != "beta" {
		t.Errorf("feedback header = %+v", fb)
	}
	if fb.ChunkedDetail == nil || len(fb.ChunkedDetail.Chunks) != 3 {
		t.Fatalf("ChunkedDetail = %+v", fb.ChunkedDetail)
	}
	for i, ch := range fb.ChunkedDetail.Chunks {
		if ch.ChunkIndex != i || ch.Feedback == nil || ch.Feedback.SceneOrScriptID != ch.ChunkID {
			t.Errorf("chunk %d = %+v", i, ch)
		}
	}

	s := fb.ChunkedDetail.Summary
	if len(s.KeyStrengths) == 0 || len(s.MajorIssues) == 0 || len(s.GlobalRecommendations) == 0 {
		t.Fatalf("Summary = %+v", s)
	}
	// the kitchen scene appears twice so its notes are deduplicated
	if !containsItem(s.KeyStrengths, "Beta says the structure is strong too. (2 sections)") {
		t.Errorf("KeyStrengths = %v", s.KeyStrengths)
	}
	if !containsItem(s.MajorIssues, "Pages 16-30: The scene runs long and should be cut.") {
		t.Errorf("MajorIssues = %v", s.MajorIssues)
	}

	for _, want := range []string{"# Script Feedback Summary", "Reviewed 3 sections.", "## Key Strengths", "## Major Issues", "## Global Recommendations"} {
		if !strings.Contains(fb.Content, want) {
			t.Errorf("Content missing %q", want)
		}
	}
	if fb.StructuredContent != fb.Content {
		t.Error("StructuredContent should hold the rendered summary")
	}
	if !strings.HasPrefix(fb.Categories.Structure, "Pages 1-15: ") {
		t.Errorf("merged Structure = %q", fb.Categories.Structure)
	}
	if !strings.Contains(fb.ScratchpadContent, "### Pages 16-30") {
		t.Errorf("ScratchpadContent = %q", fb.ScratchpadContent)
	}
}

func TestGenerateChunkedBlended(t *testing.T) {
	c := newTestComposer(t)
	fb, err := c.GenerateChunked(context.Background(), ChunkedRequest{
		ScriptID: "script-2",
		Chunks:   testChunks(),
		Mentors:  []models.MentorWeight{w("alpha", 1), w("beta", 1)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if fb.MentorID != models.BlendedMentorID || len(fb.Blend) != 2 {
		t.Errorf("MentorID = %q, Blend = %+v", fb.MentorID, fb.Blend)
	}
	for _, ch := range fb.ChunkedDetail.Chunks {
		if ch.Feedback.MentorID != models.BlendedMentorID {
			t.Errorf("chunk %d mentor = %q", ch.ChunkIndex, ch.Feedback.MentorID)
		}
	}
}

func TestGenerateChunkedPassesChunkCharacters(t *testing.T) {
	gen := &scriptedGenerator{replies: map[models.FeedbackMode]string{models.ModeStructured: "## Theme\n\nOk."}}
	c := newTestComposer(t, Tier{Source: models.SourceBasic, Generator: gen})

	_, err := c.GenerateChunked(context.Background(), ChunkedRequest{
		Chunks:   testChunks()[:2],
		MentorID: "alpha",
		Characters: map[string]models.Character{
			"MARA": models.NewCharacter("MARA"),
			"JON":  models.NewCharacter("JON"),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	contexts := map[string]string{}
	for _, call := range gen.calls {
		contexts[call.SceneContent[:10]] = call.CharacterContext
	}
	if got := contexts[kitchenScene[:10]]; got != "MARA: No notes yet." {
		t.Errorf("chunk 0 character context = %q", got)
	}
	if got := contexts["The crowd "]; got != "" {
		t.Errorf("chunk without characters got context %q", got)
	}
}

func TestGenerateChunkedBoundsConcurrency(t *testing.T) {
	gen := &scriptedGenerator{
		replies: map[models.FeedbackMode]string{models.ModeStructured: "## Pacing\n\nFine."},
		delay:   20 * time.Millisecond,
	}
	c := newTestComposer(t, Tier{Source: models.SourceBasic, Generator: gen, Timeout: time.Second})
	c.concurrency = 2

	chunks := make([]models.ScriptChunk, 6)
	for i := range chunks {
		chunks[i] = models.ScriptChunk{ID: string(rune('a' + i)), ChunkIndex: i, Content: kitchenScene}
	}
	if _, err := c.GenerateChunked(context.Background(), ChunkedRequest{Chunks: chunks, MentorID: "alpha"}); err != nil {
		t.Fatal(err)
	}
	if gen.maxSeen > 2 {
		t.Errorf("max concurrent generations = %d, want <= 2", gen.maxSeen)
	}
	if gen.callCount() != 6 {
		t.Errorf("calls = %d, want 6", gen.callCount())
	}
}

func TestGenerateChunkedValidation(t *testing.T) {
	c := newTestComposer(t)
	tests := []struct {
		name string
		req  ChunkedRequest
	}{
		{name: "no chunks", req: ChunkedRequest{MentorID: "alpha"}},
		{name: "unknown mentor", req: ChunkedRequest{Chunks: testChunks(), MentorID: "nobody"}},
		{name: "bad blend", req: ChunkedRequest{Chunks: testChunks(), Mentors: []models.MentorWeight{w("alpha", 0)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.GenerateChunked(context.Background(), tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSentences(t *testing.T) {
	got := sentences("- First point is here. Second point here!\n*Beta (40%):* Third point follows.\nok.")
	want := []string{"First point is here.", "Second point here!", "Third point follows."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("sentences() = %q, want %q", got, want)
	}
}

func containsItem(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
