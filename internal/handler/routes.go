package handler

import "net/http"

// Handlers groups every HTTP handler the server mounts
type Handlers struct {
	Scripts  *ScriptHandler
	Feedback *FeedbackHandler
	Tokens   *TokenHandler
	Mentors  *MentorHandler
	Chunking *ChunkingHandler
}

// Register mounts the API on mux using Go 1.22 method patterns
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", HealthCheck)

	// literal segments take precedence over {id}
	mux.HandleFunc("POST /api/scripts/migrate-encryption", h.Scripts.MigrateEncryption)
	mux.HandleFunc("POST /api/scripts/cleanup", h.Scripts.Cleanup)

	mux.HandleFunc("GET /api/scripts", h.Scripts.ListScripts)
	mux.HandleFunc("POST /api/scripts", h.Scripts.CreateScript)
	mux.HandleFunc("GET /api/scripts/{id}", h.Scripts.GetScript)
	mux.HandleFunc("PATCH /api/scripts/{id}", h.Scripts.UpdateScript)
	mux.HandleFunc("DELETE /api/scripts/{id}", h.Scripts.DeleteScript)
	mux.HandleFunc("POST /api/scripts/{id}/feedback", h.Feedback.RequestFeedback)

	mux.HandleFunc("GET /api/tokens/balance", h.Tokens.GetBalance)
	mux.HandleFunc("POST /api/tokens/validate", h.Tokens.ValidateAction)

	mux.HandleFunc("GET /api/mentors", h.Mentors.ListMentors)
	mux.HandleFunc("POST /api/chunking/preview", h.Chunking.Preview)
}
