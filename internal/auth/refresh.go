package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hanbin8269/spotify-vs/internal/session"
	"github.com/hanbin8269/spotify-vs/internal/shared"
	"golang.org/x/oauth2"
)

// defaultExpiresIn is used when the token response carries no lifetime.
const defaultExpiresIn = 3600

// Tokens is the result of a code exchange or refresh.
type Tokens struct {
	AccessToken string
	// RefreshToken is empty when the provider did not issue a new one.
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int
}

// Refresher exchanges a refresh token for new tokens.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

var _ Refresher = (*Flow)(nil)

// Refresh performs the refresh_token grant with the client credentials.
func (f *Flow) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	if refreshToken == "" {
		return Tokens{}, fmt.Errorf("%w: no refresh token", shared.ErrRefreshFailed)
	}
	if !f.cfg.ready() {
		return Tokens{}, ErrSetup
	}

	src := f.oauth.TokenSource(f.client(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return tokensFrom(tok, refreshToken), nil
}

// EnsureAccessToken returns a usable access token from store, refreshing it when only a
// refresh token is left. It returns "" when the user must sign in again.
//
// A failed refresh deletes the refresh token; the error is logged and not returned.
// Concurrent callers sharing a session each refresh independently.
func EnsureAccessToken(ctx context.Context, store session.Store, r Refresher, logger *log.Logger) string {
	if token, ok := store.AccessToken(); ok {
		return token
	}

	refreshToken, ok := store.RefreshToken()
	if !ok {
		return ""
	}

	t, err := r.Refresh(ctx, refreshToken)
	if err != nil {
		if logger != nil {
			logger.Warn("spotify token refresh failed", "error", err)
		}
		store.DeleteRefreshToken()
		return ""
	}

	if err := store.PutSession(t.AccessToken, t.RefreshToken, t.ExpiresIn); err != nil && logger != nil {
		logger.Error("failed to store refreshed token", "error", err)
	}
	return t.AccessToken
}

// tokensFrom converts an x/oauth2 token. x/oauth2 carries the previous refresh token
// forward when the provider omits one; that case is reported as no rotation.
func tokensFrom(tok *oauth2.Token, previousRefresh string) Tokens {
	expiresIn := int(tok.ExpiresIn)
	if expiresIn <= 0 && !tok.Expiry.IsZero() {
		expiresIn = int(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	refresh := tok.RefreshToken
	if refresh == previousRefresh {
		refresh = ""
	}

	return Tokens{AccessToken: tok.AccessToken, RefreshToken: refresh, ExpiresIn: expiresIn}
}
