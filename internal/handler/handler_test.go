package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/domain/repositories"
	"scriptmentor/internal/httputil"
	"scriptmentor/internal/mentors"
	"scriptmentor/internal/repository/sqlite"
	serviceAuth "scriptmentor/internal/service/auth"
	"scriptmentor/internal/service/chunking"
	"scriptmentor/internal/service/contentcrypto"
	"scriptmentor/internal/service/feedback"
	"scriptmentor/internal/service/review"
	"scriptmentor/internal/service/scripts"
	"scriptmentor/internal/service/tokens"
)

const testScene = `INT. DINER - NIGHT

Rosa slides into the booth.

ROSA
You're late.

LEO
I was never coming.`

type testServer struct {
	handler http.Handler
	tokens  repositories.TokenRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	catalog, err := mentors.NewRegistry()
	if err != nil {
		t.Fatalf("mentors: %v", err)
	}

	tasks := scripts.NewBackgroundRunner(logger, time.Second)
	t.Cleanup(tasks.Close)

	chunker := chunking.New()
	store := scripts.NewStore(
		sqlite.NewScriptRepository(db, logger),
		contentcrypto.New(contentcrypto.Config{Iterations: 1000}),
		chunker,
		tasks,
		logger,
	)
	tokenRepo := sqlite.NewTokenRepository(db, logger)
	ledger := tokens.NewLedger(tokenRepo, sqlite.NewTransactionManager(db, logger), logger)
	composer := feedback.NewComposer(catalog, logger)

	identity := serviceAuth.ContextResolver{}
	h := &Handlers{
		Scripts:  NewScriptHandler(store, identity, logger),
		Feedback: NewFeedbackHandler(review.NewService(store, composer, ledger, logger), identity, logger),
		Tokens:   NewTokenHandler(ledger, identity, logger),
		Mentors:  NewMentorHandler(catalog),
		Chunking: NewChunkingHandler(chunker, logger),
	}
	mux := http.NewServeMux()
	h.Register(mux)

	// stands in for the JWT middleware
	withUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := r.Header.Get("X-Test-User"); user != "" {
			r = httputil.WithUserID(r, user)
		}
		mux.ServeHTTP(w, r)
	})

	return &testServer{handler: withUser, tokens: tokenRepo}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func (s *testServer) createScript(t *testing.T, user, content string) models.Script {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/scripts", user, map[string]string{"title": "Diner", "content": content})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body.String())
	}
	return decode[models.Script](t, rec)
}

func TestScriptLifecycle(t *testing.T) {
	s := newTestServer(t)

	created := s.createScript(t, "user-1", testScene)
	if created.RawContent != testScene || !created.IsEncrypted {
		t.Errorf("created = %+v", created)
	}
	if _, ok := created.Characters["ROSA"]; !ok {
		t.Errorf("characters not extracted: %v", created.Characters)
	}

	rec := s.do(t, http.MethodGet, "/api/scripts/"+created.ID, "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	if got := decode[models.Script](t, rec); got.RawContent != testScene {
		t.Errorf("content round trip failed: %q", got.RawContent)
	}

	rec = s.do(t, http.MethodGet, "/api/scripts", "user-1", nil)
	list := decode[[]models.ScriptSummary](t, rec)
	if len(list) != 1 || list[0].ID != created.ID || !list[0].IsEncrypted {
		t.Errorf("list = %+v", list)
	}
	if strings.Contains(rec.Body.String(), "You're late") {
		t.Error("list leaked plaintext content")
	}

	rec = s.do(t, http.MethodPatch, "/api/scripts/"+created.ID, "user-1", map[string]string{"title": "Diner, revised"})
	if rec.Code != http.StatusOK || decode[models.Script](t, rec).Title != "Diner, revised" {
		t.Errorf("patch: status %d: %s", rec.Code, rec.Body.String())
	}

	if rec := s.do(t, http.MethodGet, "/api/scripts/"+created.ID, "user-2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("other user get: status %d, want 404", rec.Code)
	}

	if rec := s.do(t, http.MethodDelete, "/api/scripts/"+created.ID, "user-1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete: status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/scripts/"+created.ID, "user-1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d, want 404", rec.Code)
	}
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
	}{
		{"no identity", http.MethodGet, "/api/scripts", "", nil, http.StatusUnauthorized},
		{"empty title", http.MethodPost, "/api/scripts", "user-1", map[string]string{"content": "x"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/scripts", "user-1", map[string]string{"title": "t", "content": "x", "owner": "me"}, http.StatusBadRequest},
		{"cleanup zero days", http.MethodPost, "/api/scripts/cleanup", "user-1", map[string]int{"days": 0}, http.StatusBadRequest},
		{"unknown action", http.MethodPost, "/api/tokens/validate", "user-1", map[string]string{"action": "teleport"}, http.StatusBadRequest},
		{"empty preview", http.MethodPost, "/api/chunking/preview", "", map[string]string{"content": "  "}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.user, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}

func TestFeedbackChargesTokens(t *testing.T) {
	s := newTestServer(t)
	script := s.createScript(t, "user-1", testScene)

	rec := s.do(t, http.MethodPost, "/api/scripts/"+script.ID+"/feedback", "user-1", map[string]string{"mentor_id": "architect"})
	if rec.Code != http.StatusOK {
		t.Fatalf("feedback: status %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[review.Result](t, rec)
	if result.Feedback == nil || result.Feedback.StructuredContent == "" || result.Feedback.Source != models.SourceLocal {
		t.Errorf("feedback = %+v", result.Feedback)
	}
	if result.Transaction.UpdatedValidation.CurrentBalance != 90 {
		t.Errorf("balance after = %d, want 90", result.Transaction.UpdatedValidation.CurrentBalance)
	}

	rec = s.do(t, http.MethodGet, "/api/tokens/balance", "user-1", nil)
	balance := decode[BalanceResponse](t, rec)
	if balance.Account.Balance != 90 || len(balance.Recent) != 1 {
		t.Fatalf("balance = %+v", balance)
	}
	if m := balance.Recent[0].MentorID; m == nil || *m != "architect" {
		t.Errorf("recent transaction mentor = %v", m)
	}
}

func TestFeedbackDeclined(t *testing.T) {
	s := newTestServer(t)
	script := s.createScript(t, "user-1", testScene)

	blend := map[string]any{"mentors": []map[string]any{
		{"mentor_id": "architect", "weight": 2},
		{"mentor_id": "minimalist", "weight": 1},
	}}
	rec := s.do(t, http.MethodPost, "/api/scripts/"+script.ID+"/feedback", "user-1", blend)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("free-tier blend: status %d, want 403: %s", rec.Code, rec.Body.String())
	}
	body := decode[map[string]any](t, rec)
	if body["outcome"] != string(models.OutcomeTierRestricted) {
		t.Errorf("outcome = %v", body["outcome"])
	}

	ctx := context.Background()
	err := s.tokens.CreateAccount(ctx, &models.UserTokenAccount{
		UserID: "user-2", Balance: 4, Tier: models.TierFree, MonthlyAllowance: 100, LastResetDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	poor := s.createScript(t, "user-2", testScene)
	rec = s.do(t, http.MethodPost, "/api/scripts/"+poor.ID+"/feedback", "user-2", map[string]string{"mentor_id": "architect"})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("short balance: status %d, want 402: %s", rec.Code, rec.Body.String())
	}
	body = decode[map[string]any](t, rec)
	validation, _ := body["validation"].(map[string]any)
	if validation["shortfall"] != float64(6) {
		t.Errorf("validation = %v", validation)
	}
}

func TestValidateAction(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/tokens/validate", "user-1", map[string]string{"action": "writer_agent"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[ValidateResponse](t, rec)
	if got.Allowed || got.Permission.Allowed || got.Permission.MinimumTierRequired != models.TierPro {
		t.Errorf("writer_agent on free = %+v", got)
	}
	if !got.Validation.HasEnoughTokens {
		t.Error("100 tokens should cover writer_agent")
	}
}

func TestMentorsAndPreview(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/mentors", "", nil)
	list := decode[[]models.Mentor](t, rec)
	if len(list) != 5 || list[0].ID != "architect" {
		t.Errorf("mentors = %+v", list)
	}
	if strings.Contains(rec.Body.String(), "advice") {
		t.Error("mentor advice should not be serialized")
	}

	lines := make([]string, 1600)
	for i := range lines {
		lines[i] = "Action line."
	}
	rec = s.do(t, http.MethodPost, "/api/chunking/preview", "", map[string]string{"content": strings.Join(lines, "\n")})
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: status %d: %s", rec.Code, rec.Body.String())
	}
	preview := decode[PreviewResponse](t, rec)
	if preview.Strategy != models.StrategyPages || len(preview.Chunks) != 3 {
		t.Errorf("preview strategy %s with %d chunks, want pages with 3", preview.Strategy, len(preview.Chunks))
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
