package auth

import (
	"fmt"

	"github.com/hanbin8269/spotify-vs/internal/shared"
)

// ErrSetup is returned by [Flow.Login] when the client cannot start an authorization request.
var ErrSetup = fmt.Errorf("%w: spotify login is not configured", shared.ErrMissingCredentials)

// Reason is the machine-readable outcome code of a failed callback.
//
// It is sent back to the browser as the auth_error query parameter.
type Reason string

const (
	ReasonProviderError       Reason = "provider_error"
	ReasonMissingParams       Reason = "missing_params"
	ReasonStateMismatch       Reason = "state_mismatch"
	ReasonTokenExchangeFailed Reason = "token_exchange_failed"
)

// AuthError is a failed callback. Err holds the upstream cause for logging and is never shown to users.
type AuthError struct {
	Reason Reason
	// ProviderCode is the provider's error parameter when Reason is [ReasonProviderError].
	ProviderCode string
	Err          error
}

func (e *AuthError) Error() string {
	switch {
	case e.ProviderCode != "":
		return fmt.Sprintf("authorization failed: %s (%s)", e.Reason, e.ProviderCode)
	case e.Err != nil:
		return fmt.Sprintf("authorization failed: %s: %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("authorization failed: %s", e.Reason)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }
