package models

import "time"

// BlendedMentorID is used as the mentor id of blended feedback.
const BlendedMentorID = "blended"

// FeedbackMode selects the register of a remote generation call.
type FeedbackMode string

const (
	ModeStructured FeedbackMode = "structured"
	ModeScratchpad FeedbackMode = "scratchpad"
)

// FeedbackSource records which tier produced the text.
type FeedbackSource string

const (
	SourceEnhanced FeedbackSource = "enhanced"
	SourceBasic    FeedbackSource = "basic"
	SourceLocal    FeedbackSource = "local"
	SourceSummary  FeedbackSource = "chunk_summary"
)

// Categories holds the four canonical sections of structured feedback.
type Categories struct {
	Structure string `json:"structure,omitempty"`
	Dialogue  string `json:"dialogue,omitempty"`
	Pacing    string `json:"pacing,omitempty"`
	Theme     string `json:"theme,omitempty"`
}

// Empty reports whether no category was extracted.
func (c Categories) Empty() bool {
	return c.Structure == "" && c.Dialogue == "" && c.Pacing == "" && c.Theme == ""
}

// Feedback is immutable once produced.
type Feedback struct {
	ID                string         `json:"id"`
	MentorID          string         `json:"mentor_id"`
	SceneOrScriptID   string         `json:"scene_id"`
	StructuredContent string         `json:"structured_content"`
	ScratchpadContent string         `json:"scratchpad_content"`
	Categories        Categories     `json:"categories"`
	Timestamp         time.Time      `json:"timestamp"`
	Source            FeedbackSource `json:"source"`
	IsChunked         bool           `json:"is_chunked"`
	ChunkedDetail     *ChunkedDetail `json:"chunked_detail,omitempty"`

	// Content is the legacy single-text field; for chunked feedback it holds
	// the rendered summary.
	Content string `json:"content"`

	// Blend is present on blended feedback.
	Blend []MentorInfluence `json:"blend,omitempty"`
}

// ChunkFeedback is the per-chunk result retained for drill-down.
type ChunkFeedback struct {
	ChunkID    string    `json:"chunk_id"`
	ChunkIndex int       `json:"chunk_index"`
	Title      string    `json:"title"`
	StartPage  *int      `json:"start_page,omitempty"`
	EndPage    *int      `json:"end_page,omitempty"`
	Feedback   *Feedback `json:"feedback"`
}

// ChunkSummary aggregates findings across chunks.
type ChunkSummary struct {
	KeyStrengths          []string `json:"key_strengths"`
	MajorIssues           []string `json:"major_issues"`
	GlobalRecommendations []string `json:"global_recommendations"`
}

// ChunkedDetail is attached to feedback on a chunked script.
type ChunkedDetail struct {
	Chunks  []ChunkFeedback `json:"chunks"`
	Summary ChunkSummary    `json:"summary"`
}

// MentorWeight is one entry of a blend request.
type MentorWeight struct {
	MentorID string  `json:"mentor_id"`
	Weight   float64 `json:"weight"`
}

// MentorInfluence is a mentor's normalized share of a blend, in percent.
type MentorInfluence struct {
	MentorID  string  `json:"mentor_id"`
	Name      string  `json:"name"`
	Influence float64 `json:"influence"`
	Dominant  bool    `json:"dominant,omitempty"`
}
