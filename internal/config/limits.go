package config

const (
	// MaxScriptTitleLength is the maximum length for script titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxScriptTitleLength = 255

	// MaxScriptBytes caps uploaded script content. A feature screenplay is
	// well under 1 MiB of plain text.
	MaxScriptBytes = 5 << 20

	// MaxBlendMentors is the largest number of mentors in one blend.
	MaxBlendMentors = 5

	// ChunkFeedbackConcurrency bounds parallel per-chunk generation.
	ChunkFeedbackConcurrency = 3

	// ScriptListLimit caps list results.
	ScriptListLimit = 100
)
