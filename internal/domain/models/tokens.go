package models

import "time"

// Tier is a subscription level.
type Tier string

const (
	TierFree    Tier = "free"
	TierCreator Tier = "creator"
	TierPro     Tier = "pro"
)

// Rank orders tiers from most to least restricted. Unknown tiers rank as free.
func (t Tier) Rank() int {
	switch t {
	case TierCreator:
		return 1
	case TierPro:
		return 2
	default:
		return 0
	}
}

// ActionType identifies a token-consuming action.
type ActionType string

const (
	ActionSingleFeedback     ActionType = "single_feedback"
	ActionBlendedFeedback    ActionType = "blended_feedback"
	ActionChunkedFeedback    ActionType = "chunked_feedback"
	ActionRewriteSuggestions ActionType = "rewrite_suggestions"
	ActionWriterAgent        ActionType = "writer_agent"
)

// UserTokenAccount is the per-user balance row. Balance never goes negative.
type UserTokenAccount struct {
	UserID           string    `json:"user_id" db:"user_id"`
	Balance          int       `json:"balance" db:"balance"`
	Tier             Tier      `json:"tier" db:"tier"`
	MonthlyAllowance int       `json:"monthly_allowance" db:"monthly_allowance"`
	LastResetDate    time.Time `json:"last_reset_date" db:"last_reset_date"`
}

// TokenTransaction is an append-only audit record.
type TokenTransaction struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	ActionType ActionType `json:"action_type" db:"action_type"`
	Cost       int        `json:"cost" db:"cost"`
	ScriptID   *string    `json:"script_id,omitempty" db:"script_id"`
	MentorID   *string    `json:"mentor_id,omitempty" db:"mentor_id"`
	SceneID    *string    `json:"scene_id,omitempty" db:"scene_id"`
	Timestamp  time.Time  `json:"timestamp" db:"created_at"`
}

// TransactionRefs are the optional references recorded with a deduction.
type TransactionRefs struct {
	ScriptID string `json:"script_id,omitempty"`
	MentorID string `json:"mentor_id,omitempty"`
	SceneID  string `json:"scene_id,omitempty"`
}

// BalanceValidation is the read-only affordability check.
type BalanceValidation struct {
	HasEnoughTokens bool `json:"has_enough_tokens"`
	CurrentBalance  int  `json:"current_balance"`
	RequiredTokens  int  `json:"required_tokens"`
	Shortfall       int  `json:"shortfall,omitempty"`
	Tier            Tier `json:"tier"`

	// Critical is set when the balance is below the critical threshold
	Critical bool `json:"critical"`
}

// TierPermission is the result of the static tier policy lookup.
type TierPermission struct {
	Allowed             bool   `json:"allowed"`
	MinimumTierRequired Tier   `json:"minimum_tier_required,omitempty"`
	Reason              string `json:"reason,omitempty"`
}

// TransactionOutcome distinguishes the expected failure modes, which are
// presented differently to the user.
type TransactionOutcome string

const (
	OutcomeCompleted          TransactionOutcome = "completed"
	OutcomeInsufficientTokens TransactionOutcome = "insufficient_tokens"
	OutcomeTierRestricted     TransactionOutcome = "tier_restricted"
)

// TransactionResult is returned by ProcessTransaction.
type TransactionResult struct {
	Success           bool               `json:"success"`
	Outcome           TransactionOutcome `json:"outcome"`
	Action            ActionType         `json:"action"`
	UpdatedValidation *BalanceValidation `json:"updated_validation,omitempty"`
	Permission        *TierPermission    `json:"permission,omitempty"`
	Transaction       *TokenTransaction  `json:"transaction,omitempty"`
}
