package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/httputil"
)

// handleError converts domain errors to RFC 7807 responses
func handleError(w http.ResponseWriter, err error) {
	var (
		insufficient *domain.InsufficientTokensError
		restricted   *domain.TierRestrictedError
		decryption   *domain.DecryptionError
	)

	switch {
	case errors.As(err, &insufficient):
		httputil.RespondErrorWithExtras(w, http.StatusPaymentRequired, insufficient.Error(), map[string]interface{}{
			"current_balance": insufficient.CurrentBalance,
			"required_tokens": insufficient.RequiredTokens,
			"shortfall":       insufficient.Shortfall,
		})
	case errors.As(err, &restricted):
		httputil.RespondErrorWithExtras(w, http.StatusForbidden, restricted.Error(), map[string]interface{}{
			"action":                restricted.Action,
			"current_tier":          restricted.CurrentTier,
			"minimum_tier_required": restricted.MinimumTierRequired,
		})
	case errors.As(err, &decryption):
		httputil.RespondErrorWithExtras(w, http.StatusUnprocessableEntity, decryption.Error(), map[string]interface{}{
			"field": decryption.Field,
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrBalanceUnavailable), errors.Is(err, domain.ErrConnectivity):
		slog.Warn("backend unavailable", "error", err)
		httputil.RespondError(w, http.StatusServiceUnavailable, "service temporarily unavailable, please retry")
	default:
		slog.Error("unexpected error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
