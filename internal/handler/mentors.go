package handler

import (
	"net/http"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/httputil"
)

// MentorCatalog lists the available personas
type MentorCatalog interface {
	List() []models.Mentor
}

// MentorHandler serves the mentor catalogue
type MentorHandler struct {
	catalog MentorCatalog
}

// NewMentorHandler creates a new mentor handler
func NewMentorHandler(catalog MentorCatalog) *MentorHandler {
	return &MentorHandler{catalog: catalog}
}

// ListMentors returns every mentor in catalogue order
// GET /api/mentors
func (h *MentorHandler) ListMentors(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.catalog.List())
}
