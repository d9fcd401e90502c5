package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/httputil"
	"scriptmentor/internal/service/chunking"
)

// ChunkingHandler previews how a script would be split
type ChunkingHandler struct {
	chunker *chunking.Chunker
	logger  *slog.Logger
}

// NewChunkingHandler creates a new chunking handler
func NewChunkingHandler(chunker *chunking.Chunker, logger *slog.Logger) *ChunkingHandler {
	return &ChunkingHandler{chunker: chunker, logger: logger}
}

type previewRequest struct {
	Title         string                   `json:"title"`
	Content       string                   `json:"content"`
	Strategy      *models.ChunkingStrategy `json:"chunking_strategy,omitempty"`
	PagesPerChunk int                      `json:"pages_per_chunk,omitempty"`
}

// PreviewResponse is the body of POST /api/chunking/preview
type PreviewResponse struct {
	Recommendation chunking.Recommendation `json:"recommendation"`
	Strategy       models.ChunkingStrategy `json:"strategy"`
	TotalPages     *int                    `json:"total_pages,omitempty"`
	Chunks         []models.ScriptChunk    `json:"chunks"`
}

// Preview runs the chunker without persisting anything. Without an
// explicit strategy the recommended one is used.
// POST /api/chunking/preview
func (h *ChunkingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		handleError(w, &domain.ValidationError{Message: "content is required"})
		return
	}

	rec := chunking.Recommend(req.Content)
	opts := rec.Options
	if req.Strategy != nil {
		opts = chunking.Options{Strategy: *req.Strategy, PagesPerChunk: req.PagesPerChunk}
	}

	characters := chunking.ExtractCharacters(req.Content)
	script, err := h.chunker.Chunk(req.Content, req.Title, characters, opts)
	if err != nil {
		handleError(w, err)
		return
	}

	chunks := script.Chunks
	if chunks == nil {
		chunks = []models.ScriptChunk{}
	}
	httputil.RespondJSON(w, http.StatusOK, PreviewResponse{
		Recommendation: rec,
		Strategy:       opts.Strategy,
		TotalPages:     script.TotalPages,
		Chunks:         chunks,
	})
}
