package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/oauth2"
)

// RFC 7636 §4.1 bounds the verifier to 43..128 characters.
const maxVerifierLen = 128

const (
	verifierBytes = 64
	stateBytes    = 12
)

// PKCE is a code verifier and its S256 challenge.
type PKCE struct {
	Verifier  string
	Challenge string
}

// NewPKCE generates a random verifier (base64url of 64 bytes) and its challenge.
func NewPKCE() PKCE {
	b := make([]byte, verifierBytes)
	_, _ = rand.Read(b)

	verifier := base64.RawURLEncoding.EncodeToString(b)
	if len(verifier) > maxVerifierLen {
		verifier = verifier[:maxVerifierLen]
	}

	return PKCE{Verifier: verifier, Challenge: oauth2.S256ChallengeFromVerifier(verifier)}
}

// NewState returns an opaque, single-use state nonce (24 hex characters).
func NewState() string {
	b := make([]byte, stateBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
