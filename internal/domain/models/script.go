package models

import (
	"encoding/json"
	"time"
)

// ChunkType labels how a chunk boundary was chosen.
type ChunkType string

const (
	ChunkTypePages    ChunkType = "pages"
	ChunkTypeAct      ChunkType = "act"
	ChunkTypeSequence ChunkType = "sequence"
)

// ChunkingStrategy selects the partitioning algorithm.
type ChunkingStrategy string

const (
	StrategyPages     ChunkingStrategy = "pages"
	StrategyActs      ChunkingStrategy = "acts"
	StrategySequences ChunkingStrategy = "sequences"
)

// Valid reports whether s is one of the known strategies.
func (s ChunkingStrategy) Valid() bool {
	switch s {
	case StrategyPages, StrategyActs, StrategySequences:
		return true
	}
	return false
}

// PlaceholderNote is attached to characters that have no notes yet.
const PlaceholderNote = "No notes yet."

// Character is a named role in a script. Notes is never empty.
type Character struct {
	Name  string   `json:"name"`
	Notes []string `json:"notes"`
}

// NewCharacter builds a character, synthesizing the placeholder note when
// none are given.
func NewCharacter(name string, notes ...string) Character {
	c := Character{Name: name, Notes: append([]string(nil), notes...)}
	c.EnsureNotes()
	return c
}

// EnsureNotes restores the non-empty notes invariant.
func (c *Character) EnsureNotes() {
	if len(c.Notes) == 0 {
		c.Notes = []string{PlaceholderNote}
	}
}

// ScriptChunk is one bounded segment of a full script.
type ScriptChunk struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CharacterNames []string  `json:"character_names"`
	StartPage      *int      `json:"start_page,omitempty"`
	EndPage        *int      `json:"end_page,omitempty"`
	ChunkType      ChunkType `json:"chunk_type"`
	ChunkIndex     int       `json:"chunk_index"`

	// DecryptionFailed is set when Content holds the error marker instead
	// of the stored text.
	DecryptionFailed bool `json:"decryption_failed,omitempty"`
}

// Script is the plaintext view of a stored script.
type Script struct {
	ID                string               `json:"id"`
	OwnerID           string               `json:"owner_id"`
	Title             string               `json:"title"`
	RawContent        string               `json:"raw_content"`
	ProcessedContent  string               `json:"processed_content"`
	Characters        map[string]Character `json:"characters"`
	Chunks            []ScriptChunk        `json:"chunks,omitempty"`
	ChunkingStrategy  *ChunkingStrategy    `json:"chunking_strategy,omitempty"`
	TotalPages        *int                 `json:"total_pages,omitempty"`
	IsEncrypted       bool                 `json:"is_encrypted"`
	EncryptionVersion string               `json:"encryption_version,omitempty"`
	FileSize          int64                `json:"file_size"`
	CreatedAt         time.Time            `json:"created_at"`
	LastAccessedAt    time.Time            `json:"last_accessed_at"`

	// DecryptionErrors lists the fields replaced by the error marker during
	// the last load. Never persisted.
	DecryptionErrors []string `json:"decryption_errors,omitempty"`
}

// IsChunked reports whether the script was split into more than one chunk.
func (s *Script) IsChunked() bool {
	return len(s.Chunks) > 1
}

// SceneText returns the text used for single-scene analysis.
func (s *Script) SceneText() string {
	if s.ProcessedContent != "" {
		return s.ProcessedContent
	}
	return s.RawContent
}

// StoredChunk is the persisted form of a chunk. Content holds either a JSON
// string (plaintext) or an encrypted blob object.
type StoredChunk struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Content        json.RawMessage `json:"content"`
	CharacterNames []string        `json:"characterNames"`
	StartPage      *int            `json:"startPage,omitempty"`
	EndPage        *int            `json:"endPage,omitempty"`
	ChunkType      ChunkType       `json:"chunkType"`
	ChunkIndex     int             `json:"chunkIndex"`
}

// ScriptRecord is a row of the scripts table. Content columns carry the
// stored representation: a serialized EncryptedBlob when IsEncrypted is
// true, or legacy plaintext.
type ScriptRecord struct {
	ID                string               `json:"id" db:"id"`
	OwnerID           string               `json:"owner_id" db:"user_id"`
	Title             string               `json:"title" db:"title"`
	RawContent        string               `json:"raw_content,omitempty" db:"content"`
	ProcessedContent  string               `json:"processed_content,omitempty" db:"processed_content"`
	Characters        map[string]Character `json:"characters" db:"characters"`
	Chunks            []StoredChunk        `json:"chunks,omitempty" db:"chunks"`
	ChunkingStrategy  *ChunkingStrategy    `json:"chunking_strategy,omitempty" db:"chunking_strategy"`
	TotalPages        *int                 `json:"total_pages,omitempty" db:"total_pages"`
	IsEncrypted       *bool                `json:"is_encrypted" db:"is_encrypted"` // NULL on rows written before encryption existed
	EncryptionVersion *string              `json:"encryption_version,omitempty" db:"encryption_version"`
	FileSize          int64                `json:"file_size" db:"file_size"`
	CreatedAt         time.Time            `json:"created_at" db:"created_at"`
	LastAccessedAt    time.Time            `json:"last_accessed_at" db:"last_accessed"`
}

// Encrypted treats a missing flag as false.
func (r *ScriptRecord) Encrypted() bool {
	return r.IsEncrypted != nil && *r.IsEncrypted
}

// ScriptSummary is the list-view projection: metadata and encryption status
// only, content fields untouched.
type ScriptSummary struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	CharacterCount   int               `json:"character_count"`
	ChunkCount       int               `json:"chunk_count"`
	ChunkingStrategy *ChunkingStrategy `json:"chunking_strategy,omitempty"`
	TotalPages       *int              `json:"total_pages,omitempty"`
	IsEncrypted      bool              `json:"is_encrypted"`
	FileSize         int64             `json:"file_size"`
	CreatedAt        time.Time         `json:"created_at"`
	LastAccessedAt   time.Time         `json:"last_accessed_at"`
}

// Summary projects a record for list views.
func (r *ScriptRecord) Summary() ScriptSummary {
	return ScriptSummary{
		ID:               r.ID,
		Title:            r.Title,
		CharacterCount:   len(r.Characters),
		ChunkCount:       len(r.Chunks),
		ChunkingStrategy: r.ChunkingStrategy,
		TotalPages:       r.TotalPages,
		IsEncrypted:      r.Encrypted(),
		FileSize:         r.FileSize,
		CreatedAt:        r.CreatedAt,
		LastAccessedAt:   r.LastAccessedAt,
	}
}

// MigrationReport is returned by the encryption migration.
type MigrationReport struct {
	Migrated int `json:"migrated"`
	Failed   int `json:"failed"`
}
