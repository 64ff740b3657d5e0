package session

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrCookieFormat  = errors.New("invalid session cookie format")
	ErrCookieInvalid = errors.New("invalid session cookie")
	ErrCookieExpired = errors.New("session cookie expired")
	ErrCookieConfig  = errors.New("invalid session cookie configuration")
)

// maxCookieLen bounds how much client-supplied data is decoded for one cookie.
const maxCookieLen = 4096

// KeySize is the required length of a cookie key in bytes.
const KeySize = chacha20poly1305.KeySize

// entry is the sealed cookie payload. Expires is absolute so a client replaying an old
// cookie past its Max-Age still gets rejected.
type entry struct {
	Value   string    `cbor:"1,keyasint"`
	Expires time.Time `cbor:"2,keyasint"`
}

// Codec seals and opens cookie values with XChaCha20-Poly1305.
//
// Format: keyID "." base64url(nonce || ciphertext). The cookie name is the additional
// data, so a value sealed for one cookie cannot be replayed under another.
type Codec struct {
	keyID string
	keys  map[string][]byte
}

// NewCodec builds a codec sealing with keys[keyID]. Every key in keys is accepted when opening,
// which allows rotation.
func NewCodec(keyID string, keys map[string][]byte) (*Codec, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrCookieConfig)
	}
	if _, ok := keys[keyID]; !ok {
		return nil, fmt.Errorf("%w: key %q not found", ErrCookieConfig, keyID)
	}
	for id, k := range keys {
		if strings.Contains(id, ".") {
			return nil, fmt.Errorf("%w: key id %q contains '.'", ErrCookieConfig, id)
		}
		if _, err := chacha20poly1305.NewX(k); err != nil {
			return nil, fmt.Errorf("%w: key %s: %v", ErrCookieConfig, id, err)
		}
	}
	return &Codec{keyID: keyID, keys: keys}, nil
}

// NewKey returns a random key of [KeySize] bytes.
func NewKey() []byte {
	k := make([]byte, KeySize)
	_, _ = rand.Read(k)
	return k
}

// Seal encrypts value for the cookie called name.
func (c *Codec) Seal(name, value string, expires time.Time) (string, error) {
	if c == nil {
		return "", ErrCookieConfig
	}
	plain, err := cbor.Marshal(entry{Value: value, Expires: expires.UTC()})
	if err != nil {
		return "", err
	}

	aead, err := c.aead(c.keyID)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, plain, []byte(name))
	return c.keyID + "." + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value sealed for the cookie called name and rejects it once expired.
func (c *Codec) Open(name, sealed string, now time.Time) (string, error) {
	if c == nil {
		return "", ErrCookieConfig
	}
	if sealed == "" || len(sealed) > maxCookieLen {
		return "", ErrCookieFormat
	}
	keyID, enc, ok := strings.Cut(sealed, ".")
	if !ok || keyID == "" || enc == "" {
		return "", ErrCookieFormat
	}
	if _, known := c.keys[keyID]; !known {
		return "", ErrCookieInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return "", ErrCookieFormat
	}

	aead, err := c.aead(keyID)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrCookieFormat
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return "", ErrCookieInvalid
	}

	var e entry
	if err := cbor.Unmarshal(plain, &e); err != nil {
		return "", ErrCookieFormat
	}
	if !e.Expires.IsZero() && !now.Before(e.Expires) {
		return "", ErrCookieExpired
	}
	return e.Value, nil
}

func (c *Codec) aead(keyID string) (cipher.AEAD, error) {
	key, ok := c.keys[keyID]
	if !ok {
		return nil, ErrCookieConfig
	}
	return chacha20poly1305.NewX(key)
}
