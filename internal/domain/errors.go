package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrConnectivity means the hosted store, auth provider or network is unreachable.
	ErrConnectivity = errors.New("backend unreachable")

	// ErrDecryption is matched by every *DecryptionError.
	ErrDecryption = errors.New("decryption failed")

	// ErrBalanceUnavailable means the current token balance could not be read.
	// It is never treated as a zero balance.
	ErrBalanceUnavailable = errors.New("unable to validate token balance")

	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrTierRestricted     = errors.New("action not available on current tier")
	ErrRemoteGeneration   = errors.New("remote generation failed")
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates a missing or expired session
	UnauthorizedError struct {
		Message string
	}

	// ConnectivityError indicates the backend could not be reached
	ConnectivityError struct {
		Op    string
		Cause error
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *ConnectivityError) Error() string {
	if e.Cause == nil {
		return e.Op + ": backend unreachable"
	}
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Cause)
}

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ConnectivityError) StatusCode() int { return http.StatusServiceUnavailable }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }
func (e *ConnectivityError) Unwrap() error        { return e.Cause }

// DecryptionError reports an integrity failure, a key mismatch or a
// structurally invalid blob.
type DecryptionError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *DecryptionError) Error() string {
	msg := "decryption failed"
	if e.Field != "" {
		msg += " for " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *DecryptionError) Is(target error) bool { return target == ErrDecryption }
func (e *DecryptionError) Unwrap() error        { return e.Cause }

// InsufficientTokensError carries the numbers the client needs to explain
// the shortfall to the user.
type InsufficientTokensError struct {
	CurrentBalance int
	RequiredTokens int
	Shortfall      int
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("insufficient tokens: have %d, need %d (short %d)", e.CurrentBalance, e.RequiredTokens, e.Shortfall)
}

func (e *InsufficientTokensError) StatusCode() int      { return http.StatusPaymentRequired }
func (e *InsufficientTokensError) Is(target error) bool { return target == ErrInsufficientTokens }

// TierRestrictedError indicates the user's tier does not include the action.
type TierRestrictedError struct {
	Action              string
	CurrentTier         string
	MinimumTierRequired string
}

func (e *TierRestrictedError) Error() string {
	return fmt.Sprintf("%s requires the %s tier (current: %s)", e.Action, e.MinimumTierRequired, e.CurrentTier)
}

func (e *TierRestrictedError) StatusCode() int      { return http.StatusForbidden }
func (e *TierRestrictedError) Is(target error) bool { return target == ErrTierRestricted }

// RemoteGenerationError is raised by a single remote feedback tier.
// The composer catches it and falls through to the next tier.
type RemoteGenerationError struct {
	Tier     string
	Provider string
	Cause    error
}

func (e *RemoteGenerationError) Error() string {
	return fmt.Sprintf("%s tier (%s): %v", e.Tier, e.Provider, e.Cause)
}

func (e *RemoteGenerationError) Is(target error) bool { return target == ErrRemoteGeneration }
func (e *RemoteGenerationError) Unwrap() error        { return e.Cause }
