package session

import (
	"net/http"
	"strings"
	"time"
)

var allKeys = []string{AccessTokenKey, RefreshTokenKey, StateKey, VerifierKey}

// Manager creates request-scoped [CookieStore] values sharing one codec and cookie policy.
type Manager struct {
	codec  *Codec
	secure bool
	now    func() time.Time
}

// NewManager returns a Manager. secure controls the Secure attribute and should be true in production.
func NewManager(codec *Codec, secure bool) *Manager {
	return &Manager{codec: codec, secure: secure, now: time.Now}
}

// Store binds a [CookieStore] to one request/response pair.
func (m *Manager) Store(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{
		w:       w,
		r:       r,
		codec:   m.codec,
		secure:  m.secure,
		now:     m.now,
		pending: map[string]*string{},
	}
}

// CookieStore implements [Store] over the cookies of a single request.
//
// Incoming cookies are read from the request; writes go to the response as Set-Cookie
// headers and are also remembered, so later reads in the same request observe them.
// A CookieStore must not outlive its request and is not safe for concurrent use.
type CookieStore struct {
	w      http.ResponseWriter
	r      *http.Request
	codec  *Codec
	secure bool
	now    func() time.Time

	// pending holds values written during this request; a nil entry marks a deletion.
	pending map[string]*string
}

var _ Store = (*CookieStore)(nil)

func (s *CookieStore) PutTransient(state, codeVerifier string) error {
	if err := s.set(StateKey, state, TransientTTL); err != nil {
		return err
	}
	return s.set(VerifierKey, codeVerifier, TransientTTL)
}

func (s *CookieStore) TakeTransient() (Transient, bool) {
	state, okState := s.get(StateKey)
	verifier, okVerifier := s.get(VerifierKey)
	s.delete(StateKey)
	s.delete(VerifierKey)

	if !okState || !okVerifier {
		return Transient{}, false
	}
	return Transient{State: state, CodeVerifier: verifier}, true
}

func (s *CookieStore) PutSession(accessToken, refreshToken string, expiresIn int) error {
	if err := s.set(AccessTokenKey, accessToken, accessTTL(expiresIn)); err != nil {
		return err
	}
	if refreshToken == "" {
		return nil
	}
	return s.set(RefreshTokenKey, refreshToken, RefreshTokenTTL)
}

func (s *CookieStore) AccessToken() (string, bool)  { return s.get(AccessTokenKey) }
func (s *CookieStore) RefreshToken() (string, bool) { return s.get(RefreshTokenKey) }
func (s *CookieStore) DeleteRefreshToken()          { s.delete(RefreshTokenKey) }

func (s *CookieStore) Clear() {
	for _, k := range allKeys {
		s.delete(k)
	}
}

func (s *CookieStore) get(name string) (string, bool) {
	if v, ok := s.pending[name]; ok {
		if v == nil {
			return "", false
		}
		return *v, *v != ""
	}

	c, err := s.r.Cookie(name)
	if err != nil {
		return "", false
	}
	v, err := s.codec.Open(name, c.Value, s.now())
	if err != nil {
		return "", false
	}
	return v, v != ""
}

func (s *CookieStore) set(name, value string, ttl time.Duration) error {
	expires := s.now().Add(ttl)
	sealed, err := s.codec.Seal(name, value, expires)
	if err != nil {
		return err
	}

	s.writeCookie(&http.Cookie{
		Name:     name,
		Value:    sealed,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  expires,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.pending[name] = &value
	return nil
}

func (s *CookieStore) delete(name string) {
	s.writeCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.pending[name] = nil
}

// writeCookie replaces any Set-Cookie header already queued for the same name,
// so the response carries one directive per cookie.
func (s *CookieStore) writeCookie(c *http.Cookie) {
	line := c.String()
	if line == "" {
		return
	}

	h := s.w.Header()
	prefix := c.Name + "="
	kept := make([]string, 0, len(h["Set-Cookie"])+1)
	for _, existing := range h["Set-Cookie"] {
		if !strings.HasPrefix(existing, prefix) {
			kept = append(kept, existing)
		}
	}
	h["Set-Cookie"] = append(kept, line)
}
