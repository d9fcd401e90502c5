package handler

import (
	"context"
	"log/slog"
	"net/http"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/httputil"
	serviceAuth "scriptmentor/internal/service/auth"
	"scriptmentor/internal/service/tokens"
)

// TokenLedger is the ledger as seen by the HTTP layer
type TokenLedger interface {
	Account(ctx context.Context, userID string) (*models.UserTokenAccount, error)
	ValidateAction(ctx context.Context, userID string, action models.ActionType) (*models.BalanceValidation, error)
	History(ctx context.Context, userID string, limit int) ([]models.TokenTransaction, error)
}

// TokenHandler exposes balances and affordability checks
type TokenHandler struct {
	ledger   TokenLedger
	identity serviceAuth.Resolver
	logger   *slog.Logger
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(ledger TokenLedger, identity serviceAuth.Resolver, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		ledger:   ledger,
		identity: identity,
		logger:   logger,
	}
}

// BalanceResponse is the body of GET /api/tokens/balance
type BalanceResponse struct {
	Account           *models.UserTokenAccount                  `json:"account"`
	Critical          bool                                      `json:"critical"`
	CriticalThreshold int                                       `json:"critical_threshold"`
	Costs             map[models.ActionType]tokens.ActionPolicy `json:"costs"`
	Recent            []models.TokenTransaction                 `json:"recent_transactions"`
}

const recentTransactions = 20

// GetBalance returns the user's account, action costs and recent spending
// GET /api/tokens/balance
func (h *TokenHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	account, err := h.ledger.Account(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	recent, err := h.ledger.History(r.Context(), userID, recentTransactions)
	if err != nil {
		handleError(w, err)
		return
	}

	threshold := tokens.CriticalThreshold(account.MonthlyAllowance)
	httputil.RespondJSON(w, http.StatusOK, BalanceResponse{
		Account:           account,
		Critical:          account.Balance < threshold,
		CriticalThreshold: threshold,
		Costs:             tokens.Policies(),
		Recent:            recent,
	})
}

type validateRequest struct {
	Action models.ActionType `json:"action"`
}

// ValidateResponse is the body of POST /api/tokens/validate
type ValidateResponse struct {
	Validation *models.BalanceValidation `json:"validation"`
	Permission models.TierPermission     `json:"permission"`
	Allowed    bool                      `json:"allowed"`
}

// ValidateAction reports whether the user may run an action now. It never
// deducts.
// POST /api/tokens/validate
func (h *TokenHandler) ValidateAction(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	var req validateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := h.ledger.ValidateAction(r.Context(), userID, req.Action)
	if err != nil {
		handleError(w, err)
		return
	}
	permission := tokens.CheckTierPermission(v.Tier, req.Action)

	httputil.RespondJSON(w, http.StatusOK, ValidateResponse{
		Validation: v,
		Permission: permission,
		Allowed:    permission.Allowed && v.HasEnoughTokens,
	})
}
