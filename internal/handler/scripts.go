package handler

import (
	"context"
	"log/slog"
	"net/http"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/httputil"
	serviceAuth "scriptmentor/internal/service/auth"
	"scriptmentor/internal/service/scripts"
)

// ScriptService is the script store as seen by the HTTP layer
type ScriptService interface {
	Save(ctx context.Context, ownerID string, req *scripts.CreateScriptRequest) (*models.Script, error)
	Get(ctx context.Context, ownerID, id string) (*models.Script, error)
	GetAll(ctx context.Context, ownerID string) ([]models.ScriptRecord, error)
	Update(ctx context.Context, ownerID, id string, req *scripts.UpdateScriptRequest) (*models.Script, error)
	Delete(ctx context.Context, ownerID, id string) error
	CleanupOlderThan(ctx context.Context, ownerID string, days int) (int64, error)
	MigrateAllToEncrypted(ctx context.Context, ownerID string) (models.MigrationReport, error)
}

// ScriptHandler handles script HTTP requests
type ScriptHandler struct {
	store    ScriptService
	identity serviceAuth.Resolver
	logger   *slog.Logger
}

// NewScriptHandler creates a new script handler
func NewScriptHandler(store ScriptService, identity serviceAuth.Resolver, logger *slog.Logger) *ScriptHandler {
	return &ScriptHandler{
		store:    store,
		identity: identity,
		logger:   logger,
	}
}

// ListScripts returns metadata for the user's scripts
// GET /api/scripts
func (h *ScriptHandler) ListScripts(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	records, err := h.store.GetAll(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	summaries := make([]models.ScriptSummary, 0, len(records))
	for i := range records {
		summaries = append(summaries, records[i].Summary())
	}
	httputil.RespondJSON(w, http.StatusOK, summaries)
}

// CreateScript uploads a new script
// POST /api/scripts
func (h *ScriptHandler) CreateScript(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	var req scripts.CreateScriptRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	script, err := h.store.Save(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, script)
}

// GetScript returns a decrypted script
// GET /api/scripts/{id}
func (h *ScriptHandler) GetScript(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	script, err := h.store.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, script)
}

// UpdateScript changes title, content, characters or chunking
// PATCH /api/scripts/{id}
func (h *ScriptHandler) UpdateScript(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	var req scripts.UpdateScriptRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	script, err := h.store.Update(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, script)
}

// DeleteScript deletes a script
// DELETE /api/scripts/{id}
func (h *ScriptHandler) DeleteScript(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.store.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MigrateEncryption encrypts the user's legacy plaintext scripts
// POST /api/scripts/migrate-encryption
func (h *ScriptHandler) MigrateEncryption(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	report, err := h.store.MigrateAllToEncrypted(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, report)
}

type cleanupRequest struct {
	Days int `json:"days"`
}

// Cleanup deletes the user's scripts older than the given number of days
// POST /api/scripts/cleanup
func (h *ScriptHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	var req cleanupRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.store.CleanupOlderThan(r.Context(), userID, req.Days)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
