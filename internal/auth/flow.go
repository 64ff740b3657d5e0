package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hanbin8269/spotify-vs/internal/session"
	"golang.org/x/oauth2"
)

// CallbackParams are the query parameters the provider redirects back with.
type CallbackParams struct {
	Code  string
	State string
	// Error is the provider's error code (e.g. access_denied) when the user declined or the request was invalid.
	Error string
}

// Flow runs the Authorization Code with PKCE flow against one client registration.
//
// Flow holds no per-user state; every call takes the [session.Store] it reads and writes.
type Flow struct {
	cfg    Config
	oauth  *oauth2.Config
	logger *log.Logger
}

// NewFlow creates a Flow. An incomplete cfg is accepted so the server can start;
// [Flow.Login] then reports [ErrSetup].
func NewFlow(cfg Config, logger *log.Logger) *Flow {
	if logger == nil {
		logger = log.Default()
	}
	return &Flow{cfg: cfg, oauth: cfg.oauth2Config(), logger: logger}
}

// Login stores a fresh state/verifier pair in store and returns the provider authorization URL.
func (f *Flow) Login(store session.Store) (string, error) {
	if !f.cfg.ready() {
		return "", ErrSetup
	}

	pkce := NewPKCE()
	state := NewState()
	if err := store.PutTransient(state, pkce.Verifier); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSetup, err)
	}

	return f.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
	), nil
}

// Callback validates the provider redirect and, on success, stores the session tokens.
//
// The stored transient pair is consumed on every call. A non-nil result is always an [*AuthError].
func (f *Flow) Callback(ctx context.Context, store session.Store, p CallbackParams) error {
	pending, ok := store.TakeTransient()

	if p.Error != "" {
		return &AuthError{Reason: ReasonProviderError, ProviderCode: p.Error}
	}
	if p.Code == "" || p.State == "" || !ok {
		return &AuthError{Reason: ReasonMissingParams}
	}
	if subtle.ConstantTimeCompare([]byte(pending.State), []byte(p.State)) != 1 {
		return &AuthError{Reason: ReasonStateMismatch}
	}
	if !f.cfg.ready() {
		return &AuthError{Reason: ReasonTokenExchangeFailed, Err: ErrSetup}
	}

	tok, err := f.oauth.Exchange(f.client(ctx), p.Code, oauth2.VerifierOption(pending.CodeVerifier))
	if err != nil {
		f.logger.Error("spotify token exchange failed", "error", err)
		return &AuthError{Reason: ReasonTokenExchangeFailed, Err: err}
	}

	t := tokensFrom(tok, "")
	if err := store.PutSession(t.AccessToken, t.RefreshToken, t.ExpiresIn); err != nil {
		f.logger.Error("failed to store session", "error", err)
		return &AuthError{Reason: ReasonTokenExchangeFailed, Err: err}
	}
	return nil
}

// Logout clears every session and transient entry.
func (f *Flow) Logout(store session.Store) {
	store.Clear()
}

// client injects the configured HTTP client into ctx for x/oauth2.
func (f *Flow) client(ctx context.Context) context.Context {
	if f.cfg.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, f.cfg.HTTPClient)
}
