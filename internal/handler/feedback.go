package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/httputil"
	serviceAuth "scriptmentor/internal/service/auth"
	"scriptmentor/internal/service/review"
)

// ReviewService runs a charged feedback request
type ReviewService interface {
	Review(ctx context.Context, userID, scriptID string, req *review.Request) (*review.Result, error)
}

// FeedbackHandler handles feedback requests
type FeedbackHandler struct {
	reviews  ReviewService
	identity serviceAuth.Resolver
	logger   *slog.Logger
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(reviews ReviewService, identity serviceAuth.Resolver, logger *slog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		reviews:  reviews,
		identity: identity,
		logger:   logger,
	}
}

// RequestFeedback generates and charges mentor feedback for a script.
// A tier restriction answers 403 and a short balance 402, both with the
// ledger's numbers.
// POST /api/scripts/{id}/feedback
func (h *FeedbackHandler) RequestFeedback(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity.Resolve(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	var req review.Request
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.reviews.Review(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := result.Err(); err != nil {
		h.respondDeclined(w, err, result)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

func (h *FeedbackHandler) respondDeclined(w http.ResponseWriter, err error, result *review.Result) {
	extras := map[string]interface{}{
		"outcome":    result.Transaction.Outcome,
		"action":     result.Transaction.Action,
		"validation": result.Transaction.UpdatedValidation,
	}
	status := http.StatusPaymentRequired
	if errors.Is(err, domain.ErrTierRestricted) {
		status = http.StatusForbidden
		extras["permission"] = result.Transaction.Permission
	}
	httputil.RespondErrorWithExtras(w, status, err.Error(), extras)
}
