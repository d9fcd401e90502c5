package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/service/feedback"
)

type fakeScripts struct {
	scripts map[string]*models.Script
}

func (f *fakeScripts) Get(ctx context.Context, ownerID, id string) (*models.Script, error) {
	s, ok := f.scripts[id]
	if !ok || s.OwnerID != ownerID {
		return nil, &domain.NotFoundError{Message: "script not found"}
	}
	return s, nil
}

type fakeComposer struct {
	single  []feedback.SingleRequest
	blended []feedback.BlendRequest
	chunked []feedback.ChunkedRequest
}

func (f *fakeComposer) Generate(ctx context.Context, req feedback.SingleRequest) (*models.Feedback, error) {
	f.single = append(f.single, req)
	return &models.Feedback{ID: "fb", MentorID: req.MentorID, Content: "notes", Source: models.SourceLocal}, nil
}

func (f *fakeComposer) GenerateBlended(ctx context.Context, req feedback.BlendRequest) (*models.Feedback, error) {
	f.blended = append(f.blended, req)
	return &models.Feedback{ID: "fb", MentorID: models.BlendedMentorID, Content: "notes", Source: models.SourceLocal}, nil
}

func (f *fakeComposer) GenerateChunked(ctx context.Context, req feedback.ChunkedRequest) (*models.Feedback, error) {
	f.chunked = append(f.chunked, req)
	return &models.Feedback{ID: "fb", MentorID: req.MentorID, Content: "summary", Source: models.SourceSummary}, nil
}

type fakeLedger struct {
	tier    models.Tier
	balance int
	// declineCharge simulates a balance drained between the check and the charge
	declineCharge bool

	charged []models.ActionType
	refs    []models.TransactionRefs
}

var costs = map[models.ActionType]int{
	models.ActionSingleFeedback:  10,
	models.ActionBlendedFeedback: 25,
	models.ActionChunkedFeedback: 50,
}

func (f *fakeLedger) ValidateAction(ctx context.Context, userID string, action models.ActionType) (*models.BalanceValidation, error) {
	cost := costs[action]
	v := &models.BalanceValidation{
		HasEnoughTokens: f.balance >= cost,
		CurrentBalance:  f.balance,
		RequiredTokens:  cost,
		Tier:            f.tier,
	}
	if !v.HasEnoughTokens {
		v.Shortfall = cost - f.balance
	}
	return v, nil
}

func (f *fakeLedger) ProcessTransaction(ctx context.Context, userID string, action models.ActionType, refs models.TransactionRefs) (*models.TransactionResult, error) {
	if f.declineCharge {
		return &models.TransactionResult{
			Outcome: models.OutcomeInsufficientTokens,
			Action:  action,
			UpdatedValidation: &models.BalanceValidation{
				CurrentBalance: 0,
				RequiredTokens: costs[action],
				Shortfall:      costs[action],
				Tier:           f.tier,
			},
		}, nil
	}
	f.charged = append(f.charged, action)
	f.refs = append(f.refs, refs)
	f.balance -= costs[action]
	return &models.TransactionResult{Success: true, Outcome: models.OutcomeCompleted, Action: action}, nil
}

const owner = "user-1"

func intPtr(i int) *int { return &i }

func newTestService(tier models.Tier, balance int) (*Service, *fakeComposer, *fakeLedger) {
	scripts := &fakeScripts{scripts: map[string]*models.Script{
		"single": {
			ID:         "single",
			OwnerID:    owner,
			RawContent: "INT. DINER - NIGHT\n\nRosa waits.",
			Characters: map[string]models.Character{"ROSA": models.NewCharacter("ROSA")},
		},
		"chunked": {
			ID:      "chunked",
			OwnerID: owner,
			Chunks: []models.ScriptChunk{
				{ID: "c0", ChunkIndex: 0, Content: "First part.", CharacterNames: []string{"ROSA"}},
				{ID: "c1", ChunkIndex: 1, Content: "Second part."},
			},
		},
		"broken": {
			ID:      "broken",
			OwnerID: owner,
			Chunks: []models.ScriptChunk{
				{ID: "c0", ChunkIndex: 0, Content: "First part."},
				{ID: "c1", ChunkIndex: 1, Content: "[unreadable]", DecryptionFailed: true},
			},
		},
	}}
	composer := &fakeComposer{}
	ledger := &fakeLedger{tier: tier, balance: balance}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(scripts, composer, ledger, logger), composer, ledger
}

func TestReviewSingleScene(t *testing.T) {
	svc, composer, ledger := newTestService(models.TierFree, 100)

	res, err := svc.Review(context.Background(), owner, "single", &Request{MentorID: "alpha"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if res.Feedback == nil || !res.Transaction.Success {
		t.Fatalf("expected charged feedback, got %+v", res)
	}
	if err := res.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	if len(composer.single) != 1 {
		t.Fatalf("single calls = %d, want 1", len(composer.single))
	}
	if got := composer.single[0].SceneContent; got != "INT. DINER - NIGHT\n\nRosa waits." {
		t.Errorf("scene content = %q", got)
	}
	if ledger.balance != 90 {
		t.Errorf("balance = %d, want 90", ledger.balance)
	}
	want := models.TransactionRefs{ScriptID: "single", MentorID: "alpha"}
	if ledger.refs[0] != want {
		t.Errorf("refs = %+v, want %+v", ledger.refs[0], want)
	}
}

func TestReviewSelectsAction(t *testing.T) {
	tests := []struct {
		name     string
		scriptID string
		req      Request
		want     models.ActionType
	}{
		{"single mentor", "single", Request{MentorID: "alpha"}, models.ActionSingleFeedback},
		{"blend", "single", Request{Mentors: []models.MentorWeight{{MentorID: "alpha", Weight: 1}}}, models.ActionBlendedFeedback},
		{"whole chunked script", "chunked", Request{MentorID: "alpha"}, models.ActionChunkedFeedback},
		{"one chunk", "chunked", Request{MentorID: "alpha", ChunkIndex: intPtr(1)}, models.ActionSingleFeedback},
		{"excerpt of chunked script", "chunked", Request{MentorID: "alpha", SceneContent: "Just this."}, models.ActionSingleFeedback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, ledger := newTestService(models.TierPro, 1000)
			req := tt.req
			if _, err := svc.Review(context.Background(), owner, tt.scriptID, &req); err != nil {
				t.Fatalf("Review: %v", err)
			}
			if len(ledger.charged) != 1 || ledger.charged[0] != tt.want {
				t.Errorf("charged %v, want [%s]", ledger.charged, tt.want)
			}
		})
	}
}

func TestReviewOneChunk(t *testing.T) {
	svc, composer, ledger := newTestService(models.TierFree, 100)

	if _, err := svc.Review(context.Background(), owner, "chunked", &Request{MentorID: "alpha", ChunkIndex: intPtr(0)}); err != nil {
		t.Fatalf("Review: %v", err)
	}
	req := composer.single[0]
	if req.TargetID != "c0" || req.SceneContent != "First part." {
		t.Errorf("request = %+v", req)
	}
	if len(req.CharacterNames) != 1 || req.CharacterNames[0] != "ROSA" {
		t.Errorf("character names = %v", req.CharacterNames)
	}
	if ledger.refs[0].SceneID != "c0" {
		t.Errorf("scene ref = %q, want c0", ledger.refs[0].SceneID)
	}
}

func TestReviewBlockedBeforeComposing(t *testing.T) {
	tests := []struct {
		name    string
		tier    models.Tier
		balance int
		req     Request
		outcome models.TransactionOutcome
		wantErr error
	}{
		{
			name:    "tier restricted",
			tier:    models.TierFree,
			balance: 100,
			req:     Request{Mentors: []models.MentorWeight{{MentorID: "alpha", Weight: 1}}},
			outcome: models.OutcomeTierRestricted,
			wantErr: domain.ErrTierRestricted,
		},
		{
			name:    "insufficient",
			tier:    models.TierFree,
			balance: 9,
			req:     Request{MentorID: "alpha"},
			outcome: models.OutcomeInsufficientTokens,
			wantErr: domain.ErrInsufficientTokens,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, composer, ledger := newTestService(tt.tier, tt.balance)
			req := tt.req
			res, err := svc.Review(context.Background(), owner, "single", &req)
			if err != nil {
				t.Fatalf("Review: %v", err)
			}
			if res.Feedback != nil {
				t.Error("feedback returned for a blocked action")
			}
			if res.Transaction.Outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s", res.Transaction.Outcome, tt.outcome)
			}
			if !errors.Is(res.Err(), tt.wantErr) {
				t.Errorf("Err() = %v, want %v", res.Err(), tt.wantErr)
			}
			if len(composer.single)+len(composer.blended) != 0 {
				t.Error("composer ran for a blocked action")
			}
			if len(ledger.charged) != 0 {
				t.Error("blocked action was charged")
			}
		})
	}
}

func TestResultErrCarriesNumbers(t *testing.T) {
	svc, _, _ := newTestService(models.TierFree, 4)

	res, err := svc.Review(context.Background(), owner, "single", &Request{MentorID: "alpha"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	var insufficient *domain.InsufficientTokensError
	if !errors.As(res.Err(), &insufficient) {
		t.Fatalf("Err() = %v", res.Err())
	}
	if insufficient.CurrentBalance != 4 || insufficient.RequiredTokens != 10 || insufficient.Shortfall != 6 {
		t.Errorf("got %+v", insufficient)
	}
	if insufficient.StatusCode() != 402 {
		t.Errorf("status = %d, want 402", insufficient.StatusCode())
	}
}

func TestReviewWithholdsFeedbackWhenChargeDeclined(t *testing.T) {
	svc, composer, ledger := newTestService(models.TierFree, 100)
	ledger.declineCharge = true

	res, err := svc.Review(context.Background(), owner, "single", &Request{MentorID: "alpha"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if len(composer.single) != 1 {
		t.Fatalf("composer calls = %d, want 1", len(composer.single))
	}
	if res.Feedback != nil {
		t.Error("feedback returned although the charge was declined")
	}
	if !errors.Is(res.Err(), domain.ErrInsufficientTokens) {
		t.Errorf("Err() = %v", res.Err())
	}
}

func TestReviewErrors(t *testing.T) {
	tests := []struct {
		name     string
		scriptID string
		req      Request
		want     error
	}{
		{"no mentor", "single", Request{}, domain.ErrValidation},
		{"both mentor forms", "single", Request{MentorID: "alpha", Mentors: []models.MentorWeight{{MentorID: "beta", Weight: 1}}}, domain.ErrValidation},
		{"negative chunk index", "chunked", Request{MentorID: "alpha", ChunkIndex: intPtr(-1)}, domain.ErrValidation},
		{"chunk out of range", "chunked", Request{MentorID: "alpha", ChunkIndex: intPtr(7)}, domain.ErrValidation},
		{"chunk on single scene", "single", Request{MentorID: "alpha", ChunkIndex: intPtr(0)}, domain.ErrValidation},
		{"unknown script", "missing", Request{MentorID: "alpha"}, domain.ErrNotFound},
		{"unreadable chunk", "broken", Request{MentorID: "alpha", ChunkIndex: intPtr(1)}, domain.ErrDecryption},
		{"unreadable chunk in whole review", "broken", Request{MentorID: "alpha"}, domain.ErrDecryption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, ledger := newTestService(models.TierPro, 1000)
			req := tt.req
			_, err := svc.Review(context.Background(), owner, tt.scriptID, &req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(ledger.charged) != 0 {
				t.Error("failed request was charged")
			}
		})
	}
}
