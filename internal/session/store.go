package session

import "time"

// Cookie names. Each value is sealed by a [Codec] before it leaves the server.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	StateKey        = "oauth_state"
	VerifierKey     = "oauth_code_verifier"
)

const (
	// TransientTTL bounds how long a login may take between redirect and callback.
	TransientTTL = 10 * time.Minute
	// RefreshTokenTTL is how long a refresh token is kept after it was last written.
	RefreshTokenTTL = 30 * 24 * time.Hour
	// DefaultAccessTokenTTL applies when the provider omits expires_in.
	DefaultAccessTokenTTL = time.Hour
)

// Transient is the single-use state/verifier pair created at login.
type Transient struct {
	State        string
	CodeVerifier string
}

// Store is the session context passed to every operation that reads or mutates session data.
//
// Implementations are not required to be safe for concurrent use unless stated.
type Store interface {
	// PutTransient stores the pair for [TransientTTL], replacing any previous pair.
	PutTransient(state, codeVerifier string) error
	// TakeTransient returns the stored pair and removes it. The boolean is false when
	// either half is missing or expired; the pair is removed regardless.
	TakeTransient() (Transient, bool)
	// PutSession stores tokens. An empty refreshToken keeps the current one.
	// expiresIn is the access token lifetime in seconds.
	PutSession(accessToken, refreshToken string, expiresIn int) error
	AccessToken() (string, bool)
	RefreshToken() (string, bool)
	DeleteRefreshToken()
	// Clear removes every session and transient entry.
	Clear()
}

func accessTTL(expiresIn int) time.Duration {
	if expiresIn <= 0 {
		return DefaultAccessTokenTTL
	}
	return time.Duration(expiresIn) * time.Second
}
