// Package auth implements Spotify sign-in with the OAuth2 Authorization Code grant and PKCE.
//
// # Login
//
// [Flow.Login] creates a verifier/challenge pair and a state nonce ([NewPKCE], [NewState]),
// stores the state and verifier as a single-use transient pair and returns the authorization URL.
//
// # Callback
//
// [Flow.Callback] checks, in order: provider error, missing parameters, state mismatch; then
// exchanges the code and verifier for tokens. Each failure is an [*AuthError] carrying a [Reason]
// that the HTTP layer passes back to the browser. Upstream errors are logged, never surfaced.
//
// # Refresh
//
// [EnsureAccessToken] returns the cached access token or mints a new one from the refresh token.
// A failed refresh ends the session by deleting the refresh token.
package auth
