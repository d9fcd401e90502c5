// Package review turns a feedback request on a stored script into a charged
// Feedback: token pre-check, composition, then deduction.
package review

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/service/feedback"
	"scriptmentor/internal/service/tokens"
)

// ScriptSource loads decrypted scripts.
type ScriptSource interface {
	Get(ctx context.Context, ownerID, id string) (*models.Script, error)
}

// Composer generates feedback.
type Composer interface {
	Generate(ctx context.Context, req feedback.SingleRequest) (*models.Feedback, error)
	GenerateBlended(ctx context.Context, req feedback.BlendRequest) (*models.Feedback, error)
	GenerateChunked(ctx context.Context, req feedback.ChunkedRequest) (*models.Feedback, error)
}

// Ledger is the token accounting the service charges against.
type Ledger interface {
	ValidateAction(ctx context.Context, userID string, action models.ActionType) (*models.BalanceValidation, error)
	ProcessTransaction(ctx context.Context, userID string, action models.ActionType, refs models.TransactionRefs) (*models.TransactionResult, error)
}

// Request selects the mentor(s) and the part of the script to review.
type Request struct {
	MentorID string                `json:"mentor_id,omitempty"`
	Mentors  []models.MentorWeight `json:"mentors,omitempty"`

	// ChunkIndex reviews one chunk of a chunked script
	ChunkIndex *int `json:"chunk_index,omitempty"`
	// SceneContent reviews an excerpt instead of stored content
	SceneContent string `json:"scene_content,omitempty"`
}

// Result carries the feedback when the action was charged, and the ledger
// outcome either way.
type Result struct {
	Feedback    *models.Feedback          `json:"feedback,omitempty"`
	Transaction *models.TransactionResult `json:"transaction"`
}

// Service orchestrates feedback requests.
type Service struct {
	scripts  ScriptSource
	composer Composer
	ledger   Ledger
	logger   *slog.Logger
}

// NewService creates a new review service
func NewService(scripts ScriptSource, composer Composer, ledger Ledger, logger *slog.Logger) *Service {
	return &Service{scripts: scripts, composer: composer, ledger: ledger, logger: logger}
}

// target is what will be reviewed and what it costs.
type target struct {
	action  models.ActionType
	id      string
	content string
	chunks  []models.ScriptChunk
	names   []string
}

// Review checks the user's tier and balance, composes feedback and deducts
// tokens. A tier restriction or short balance is returned as a Result with
// no feedback and no deduction.
func (s *Service) Review(ctx context.Context, userID, scriptID string, req *Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	script, err := s.scripts.Get(ctx, userID, scriptID)
	if err != nil {
		return nil, err
	}
	t, err := selectTarget(script, req)
	if err != nil {
		return nil, err
	}

	if blocked, err := s.precheck(ctx, userID, t.action); err != nil || blocked != nil {
		return blocked, err
	}

	fb, err := s.compose(ctx, script, req, t)
	if err != nil {
		return nil, err
	}

	refs := models.TransactionRefs{ScriptID: script.ID, MentorID: fb.MentorID}
	if t.id != script.ID {
		refs.SceneID = t.id
	}
	txn, err := s.ledger.ProcessTransaction(ctx, userID, t.action, refs)
	if err != nil {
		return nil, err
	}
	if !txn.Success {
		// the balance moved between the pre-check and the charge
		s.logger.Warn("feedback withheld, charge declined",
			"user_id", userID,
			"script_id", script.ID,
			"outcome", txn.Outcome,
		)
		return &Result{Transaction: txn}, nil
	}

	s.logger.Info("feedback delivered",
		"user_id", userID,
		"script_id", script.ID,
		"action", t.action,
		"source", fb.Source,
	)
	return &Result{Feedback: fb, Transaction: txn}, nil
}

// precheck returns a non-nil Result when the action must not proceed.
func (s *Service) precheck(ctx context.Context, userID string, action models.ActionType) (*Result, error) {
	v, err := s.ledger.ValidateAction(ctx, userID, action)
	if err != nil {
		return nil, err
	}

	permission := tokens.CheckTierPermission(v.Tier, action)
	if !permission.Allowed {
		return &Result{Transaction: &models.TransactionResult{
			Outcome:           models.OutcomeTierRestricted,
			Action:            action,
			UpdatedValidation: v,
			Permission:        &permission,
		}}, nil
	}
	if !v.HasEnoughTokens {
		return &Result{Transaction: &models.TransactionResult{
			Outcome:           models.OutcomeInsufficientTokens,
			Action:            action,
			UpdatedValidation: v,
		}}, nil
	}
	return nil, nil
}

func (s *Service) compose(ctx context.Context, script *models.Script, req *Request, t target) (*models.Feedback, error) {
	if t.chunks != nil {
		return s.composer.GenerateChunked(ctx, feedback.ChunkedRequest{
			ScriptID:   script.ID,
			Chunks:     t.chunks,
			Characters: script.Characters,
			MentorID:   req.MentorID,
			Mentors:    req.Mentors,
		})
	}
	if len(req.Mentors) > 0 {
		return s.composer.GenerateBlended(ctx, feedback.BlendRequest{
			TargetID:       t.id,
			SceneContent:   t.content,
			Mentors:        req.Mentors,
			Characters:     script.Characters,
			CharacterNames: t.names,
		})
	}
	return s.composer.Generate(ctx, feedback.SingleRequest{
		TargetID:       t.id,
		SceneContent:   t.content,
		MentorID:       req.MentorID,
		Characters:     script.Characters,
		CharacterNames: t.names,
	})
}

// selectTarget resolves what to review. A chunked script without a chunk
// index or excerpt is reviewed chunk by chunk.
func selectTarget(script *models.Script, req *Request) (target, error) {
	action := models.ActionSingleFeedback
	if len(req.Mentors) > 0 {
		action = models.ActionBlendedFeedback
	}

	switch {
	case req.SceneContent != "":
		return target{action: action, id: script.ID, content: req.SceneContent}, nil

	case req.ChunkIndex != nil:
		for _, ch := range script.Chunks {
			if ch.ChunkIndex != *req.ChunkIndex {
				continue
			}
			if ch.DecryptionFailed {
				return target{}, &domain.DecryptionError{Field: fmt.Sprintf("chunks[%d].content", ch.ChunkIndex), Reason: "chunk is unreadable"}
			}
			names := ch.CharacterNames
			if names == nil {
				names = []string{}
			}
			return target{action: action, id: ch.ID, content: ch.Content, names: names}, nil
		}
		return target{}, &domain.ValidationError{Message: fmt.Sprintf("script has no chunk %d", *req.ChunkIndex)}

	case script.IsChunked():
		for _, ch := range script.Chunks {
			if ch.DecryptionFailed {
				return target{}, &domain.DecryptionError{Field: fmt.Sprintf("chunks[%d].content", ch.ChunkIndex), Reason: "chunk is unreadable"}
			}
		}
		return target{action: models.ActionChunkedFeedback, id: script.ID, chunks: script.Chunks}, nil

	default:
		if len(script.DecryptionErrors) > 0 {
			return target{}, &domain.DecryptionError{Field: "content", Reason: "script content is unreadable"}
		}
		return target{action: action, id: script.ID, content: script.SceneText()}, nil
	}
}

func validateRequest(req *Request) error {
	if req.MentorID != "" && len(req.Mentors) > 0 {
		return fmt.Errorf("give either mentor_id or mentors, not both")
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.MentorID, validation.When(len(req.Mentors) == 0, validation.Required)),
		validation.Field(&req.ChunkIndex, validation.Min(0)),
		validation.Field(&req.SceneContent, validation.Length(0, 200_000)),
	)
}

// Err converts a declined outcome into the typed error the HTTP layer maps
// to 402 or 403. It returns nil for a completed transaction.
func (r *Result) Err() error {
	txn := r.Transaction
	if txn == nil || txn.Success {
		return nil
	}
	switch txn.Outcome {
	case models.OutcomeTierRestricted:
		e := &domain.TierRestrictedError{Action: string(txn.Action)}
		if txn.UpdatedValidation != nil {
			e.CurrentTier = string(txn.UpdatedValidation.Tier)
		}
		if txn.Permission != nil {
			e.MinimumTierRequired = string(txn.Permission.MinimumTierRequired)
		}
		return e
	default:
		e := &domain.InsufficientTokensError{}
		if v := txn.UpdatedValidation; v != nil {
			e.CurrentBalance = v.CurrentBalance
			e.RequiredTokens = v.RequiredTokens
			e.Shortfall = v.Shortfall
		}
		return e
	}
}
