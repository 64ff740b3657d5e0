package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/hanbin8269/spotify-vs/internal/session"
	"github.com/hanbin8269/spotify-vs/internal/shared"
	tu "github.com/hanbin8269/spotify-vs/internal/testing"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newTestFlow(t *testing.T) (*Flow, *tu.FakeSpotify) {
	t.Helper()
	fake := tu.NewFakeSpotify(t)
	cfg := Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://127.0.0.1:3000/auth/callback",
		Scopes:       []string{"user-library-read", "user-read-private"},
		AuthURL:      fake.URL() + "/authorize",
		TokenURL:     fake.TokenURL(),
		HTTPClient:   fake.Server.Client(),
	}
	return NewFlow(cfg, quietLogger()), fake
}

func TestPKCE(t *testing.T) {
	t.Run("verifier and challenge", func(t *testing.T) {
		p := NewPKCE()
		if len(p.Verifier) < 43 || len(p.Verifier) > maxVerifierLen {
			t.Errorf("verifier length %d outside 43..128", len(p.Verifier))
		}
		if _, err := base64.RawURLEncoding.DecodeString(p.Verifier); err != nil {
			t.Errorf("verifier is not base64url: %v", err)
		}

		sum := sha256.Sum256([]byte(p.Verifier))
		want := base64.RawURLEncoding.EncodeToString(sum[:])
		if p.Challenge != want {
			t.Errorf("expected challenge %s, got %s", want, p.Challenge)
		}
	})

	t.Run("unique", func(t *testing.T) {
		a, b := NewPKCE(), NewPKCE()
		if a.Verifier == b.Verifier {
			t.Error("expected distinct verifiers")
		}
		if NewState() == NewState() {
			t.Error("expected distinct states")
		}
	})

	t.Run("state format", func(t *testing.T) {
		s := NewState()
		if len(s) != 24 {
			t.Errorf("expected 24 characters, got %d", len(s))
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := NewFlow(Config{ClientID: "id"}, quietLogger())
		_, err := f.Login(session.NewMemoryStore())
		if !errors.Is(err, ErrSetup) {
			t.Errorf("expected ErrSetup, got %v", err)
		}
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("authorization url", func(t *testing.T) {
		f, fake := newTestFlow(t)
		store := session.NewMemoryStore()

		raw, err := f.Login(store)
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("invalid url %q: %v", raw, err)
		}
		if got := u.Scheme + "://" + u.Host + u.Path; got != fake.URL()+"/authorize" {
			t.Errorf("unexpected endpoint %s", got)
		}

		pending, ok := store.TakeTransient()
		if !ok {
			t.Fatal("expected transient pair to be stored")
		}

		q := u.Query()
		want := map[string]string{
			"response_type":         "code",
			"client_id":             "client-id",
			"scope":                 "user-library-read user-read-private",
			"redirect_uri":          "http://127.0.0.1:3000/auth/callback",
			"state":                 pending.State,
			"code_challenge_method": "S256",
			"code_challenge":        func() string { s := sha256.Sum256([]byte(pending.CodeVerifier)); return base64.RawURLEncoding.EncodeToString(s[:]) }(),
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("%s: expected %q, got %q", k, v, q.Get(k))
			}
		}
		if q.Get("code_verifier") != "" {
			t.Error("verifier must not appear in the authorization url")
		}
	})

	t.Run("default scope", func(t *testing.T) {
		f := NewFlow(Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://localhost/cb"}, quietLogger())
		raw, err := f.Login(session.NewMemoryStore())
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		u, _ := url.Parse(raw)
		if u.Query().Get("scope") != "user-library-read" {
			t.Errorf("expected default scope, got %q", u.Query().Get("scope"))
		}
		if u.Host != "accounts.spotify.com" {
			t.Errorf("expected spotify host, got %q", u.Host)
		}
	})

	t.Run("new login overwrites", func(t *testing.T) {
		f, _ := newTestFlow(t)
		store := session.NewMemoryStore()
		first, _ := f.Login(store)
		second, _ := f.Login(store)

		u1, _ := url.Parse(first)
		u2, _ := url.Parse(second)
		pending, _ := store.TakeTransient()
		if pending.State != u2.Query().Get("state") {
			t.Error("expected the latest state to be stored")
		}
		if pending.State == u1.Query().Get("state") {
			t.Error("expected the first state to be replaced")
		}
	})
}

func login(t *testing.T, f *Flow, store session.Store) string {
	t.Helper()
	raw, err := f.Login(store)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	u, _ := url.Parse(raw)
	return u.Query().Get("state")
}

func assertReason(t *testing.T, err error, want Reason) *AuthError {
	t.Helper()
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	if ae.Reason != want {
		t.Errorf("expected reason %s, got %s", want, ae.Reason)
	}
	return ae
}

func TestCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f, fake := newTestFlow(t)
		store := session.NewMemoryStore()
		state := login(t, f, store)

		if err := f.Callback(ctx, store, CallbackParams{Code: "auth-code", State: state}); err != nil {
			t.Fatalf("Callback failed: %v", err)
		}

		if at, _ := store.AccessToken(); at != "access-1" {
			t.Errorf("expected access-1, got %q", at)
		}
		if rt, _ := store.RefreshToken(); rt != "refresh-1" {
			t.Errorf("expected refresh-1, got %q", rt)
		}

		forms := fake.TokenForms()
		if len(forms) != 1 {
			t.Fatalf("expected one token request, got %d", len(forms))
		}
		form := forms[0]
		if form.Get("grant_type") != "authorization_code" || form.Get("code") != "auth-code" {
			t.Errorf("unexpected grant: %v", form)
		}
		if len(form.Get("code_verifier")) < 43 {
			t.Errorf("expected code_verifier to be sent, got %q", form.Get("code_verifier"))
		}
		if form.Get("redirect_uri") != "http://127.0.0.1:3000/auth/callback" {
			t.Errorf("unexpected redirect_uri %q", form.Get("redirect_uri"))
		}
		if form.Get("basic_client_id") != "client-id" || form.Get("basic_client_secret") != "client-secret" {
			t.Error("expected client credentials in the Authorization header")
		}
		if form.Get("client_secret") != "" {
			t.Error("client secret must not be sent in the body")
		}
	})

	t.Run("provider error", func(t *testing.T) {
		f, fake := newTestFlow(t)
		store := session.NewMemoryStore()
		state := login(t, f, store)

		err := f.Callback(ctx, store, CallbackParams{State: state, Error: "access_denied"})
		ae := assertReason(t, err, ReasonProviderError)
		if ae.ProviderCode != "access_denied" {
			t.Errorf("expected provider code access_denied, got %q", ae.ProviderCode)
		}
		if fake.Calls("/api/token") != 0 {
			t.Error("expected no token exchange")
		}
		if _, ok := store.TakeTransient(); ok {
			t.Error("expected transient pair to be consumed")
		}
	})

	t.Run("missing params", func(t *testing.T) {
		tests := []struct {
			name   string
			params CallbackParams
			login  bool
		}{
			{"no code", CallbackParams{State: "x"}, true},
			{"no state", CallbackParams{Code: "c"}, true},
			{"no stored pair", CallbackParams{Code: "c", State: "x"}, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f, fake := newTestFlow(t)
				store := session.NewMemoryStore()
				if tt.login {
					login(t, f, store)
				}
				assertReason(t, f.Callback(ctx, store, tt.params), ReasonMissingParams)
				if fake.Calls("/api/token") != 0 {
					t.Error("expected no token exchange")
				}
			})
		}
	})

	t.Run("state mismatch performs no exchange", func(t *testing.T) {
		for i := range 5 {
			f, fake := newTestFlow(t)
			store := session.NewMemoryStore()
			stored := login(t, f, store)
			incoming := NewState()
			if i == 0 {
				incoming = stored[:len(stored)-1] + "x"
			}

			assertReason(t, f.Callback(ctx, store, CallbackParams{Code: "code", State: incoming}), ReasonStateMismatch)
			if fake.Calls("/api/token") != 0 {
				t.Errorf("expected no token exchange, got %d", fake.Calls("/api/token"))
			}
			if _, ok := store.AccessToken(); ok {
				t.Error("expected no session")
			}
		}
	})

	t.Run("replayed callback", func(t *testing.T) {
		f, fake := newTestFlow(t)
		store := session.NewMemoryStore()
		state := login(t, f, store)
		params := CallbackParams{Code: "code", State: state}

		if err := f.Callback(ctx, store, params); err != nil {
			t.Fatalf("first callback failed: %v", err)
		}
		assertReason(t, f.Callback(ctx, store, params), ReasonMissingParams)
		if fake.Calls("/api/token") != 1 {
			t.Errorf("expected a single exchange, got %d", fake.Calls("/api/token"))
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		f, fake := newTestFlow(t)
		fake.FailToken(http.StatusBadRequest)
		store := session.NewMemoryStore()
		state := login(t, f, store)

		ae := assertReason(t, f.Callback(ctx, store, CallbackParams{Code: "bad", State: state}), ReasonTokenExchangeFailed)
		if ae.Err == nil {
			t.Error("expected upstream cause to be kept for logging")
		}
		if _, ok := store.AccessToken(); ok {
			t.Error("expected no session")
		}
	})
}

func TestLogout(t *testing.T) {
	f, _ := newTestFlow(t)
	store := session.NewMemoryStore()
	_ = store.PutSession("a", "r", 60)
	login(t, f, store)

	f.Logout(store)
	if _, ok := store.AccessToken(); ok {
		t.Error("expected access token cleared")
	}
	if _, ok := store.RefreshToken(); ok {
		t.Error("expected refresh token cleared")
	}
	if _, ok := store.TakeTransient(); ok {
		t.Error("expected transient pair cleared")
	}

	f.Logout(store)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotated", func(t *testing.T) {
		f, fake := newTestFlow(t)
		fake.SetToken(map[string]any{"access_token": "access-2", "token_type": "Bearer", "expires_in": 1800, "refresh_token": "refresh-2"})

		tok, err := f.Refresh(ctx, "refresh-1")
		if err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if tok.AccessToken != "access-2" || tok.RefreshToken != "refresh-2" {
			t.Errorf("unexpected tokens %+v", tok)
		}
		if tok.ExpiresIn < 1790 || tok.ExpiresIn > 1800 {
			t.Errorf("expected expires_in about 1800, got %d", tok.ExpiresIn)
		}

		form := fake.TokenForms()[0]
		if form.Get("grant_type") != "refresh_token" || form.Get("refresh_token") != "refresh-1" {
			t.Errorf("unexpected grant %v", form)
		}
		if form.Get("basic_client_id") != "client-id" {
			t.Error("expected client credentials in the Authorization header")
		}
	})

	t.Run("not rotated", func(t *testing.T) {
		f, fake := newTestFlow(t)
		fake.SetToken(map[string]any{"access_token": "access-2", "token_type": "Bearer", "expires_in": 3600})

		tok, err := f.Refresh(ctx, "refresh-1")
		if err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if tok.RefreshToken != "" {
			t.Errorf("expected no new refresh token, got %q", tok.RefreshToken)
		}
	})

	t.Run("failure", func(t *testing.T) {
		f, fake := newTestFlow(t)
		fake.FailToken(http.StatusBadRequest)
		if _, err := f.Refresh(ctx, "revoked"); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		f, fake := newTestFlow(t)
		if _, err := f.Refresh(ctx, ""); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		if fake.Calls("/api/token") != 0 {
			t.Error("expected no token request")
		}
	})
}

type fakeRefresher struct {
	calls  atomic.Int32
	tokens Tokens
	err    error
	// gate, when set, blocks every Refresh until it is closed.
	gate chan struct{}
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.tokens, f.err
}

func TestEnsureAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("cached token skips refresh", func(t *testing.T) {
		store := session.NewMemoryStore()
		_ = store.PutSession("cached", "refresh", 3600)
		r := &fakeRefresher{}

		if got := EnsureAccessToken(ctx, store, r, quietLogger()); got != "cached" {
			t.Errorf("expected cached, got %q", got)
		}
		if r.calls.Load() != 0 {
			t.Errorf("expected no refresh, got %d", r.calls.Load())
		}
	})

	t.Run("refreshes and stores", func(t *testing.T) {
		store := session.NewMemoryStore()
		_ = store.PutSession("", "refresh-1", 3600)
		r := &fakeRefresher{tokens: Tokens{AccessToken: "fresh", ExpiresIn: 3600}}

		if got := EnsureAccessToken(ctx, store, r, quietLogger()); got != "fresh" {
			t.Errorf("expected fresh, got %q", got)
		}
		if at, _ := store.AccessToken(); at != "fresh" {
			t.Errorf("expected stored access token, got %q", at)
		}
		if rt, _ := store.RefreshToken(); rt != "refresh-1" {
			t.Errorf("expected refresh token kept, got %q", rt)
		}
	})

	t.Run("stores rotated refresh token", func(t *testing.T) {
		store := session.NewMemoryStore()
		_ = store.PutSession("", "refresh-1", 3600)
		r := &fakeRefresher{tokens: Tokens{AccessToken: "fresh", RefreshToken: "refresh-2", ExpiresIn: 3600}}

		EnsureAccessToken(ctx, store, r, quietLogger())
		if rt, _ := store.RefreshToken(); rt != "refresh-2" {
			t.Errorf("expected refresh-2, got %q", rt)
		}
	})

	t.Run("failed refresh deletes refresh token", func(t *testing.T) {
		store := session.NewMemoryStore()
		_ = store.PutSession("", "refresh-1", 3600)
		r := &fakeRefresher{err: shared.ErrRefreshFailed}

		if got := EnsureAccessToken(ctx, store, r, quietLogger()); got != "" {
			t.Errorf("expected no token, got %q", got)
		}
		if _, ok := store.RefreshToken(); ok {
			t.Error("expected refresh token deleted")
		}
	})

	t.Run("no tokens", func(t *testing.T) {
		r := &fakeRefresher{}
		if got := EnsureAccessToken(ctx, session.NewMemoryStore(), r, quietLogger()); got != "" {
			t.Errorf("expected no token, got %q", got)
		}
		if r.calls.Load() != 0 {
			t.Error("expected no refresh")
		}
	})

	t.Run("against token endpoint", func(t *testing.T) {
		f, fake := newTestFlow(t)
		fake.SetToken(map[string]any{"access_token": "access-9", "token_type": "Bearer", "expires_in": 3600})
		store := session.NewMemoryStore()
		_ = store.PutSession("", "refresh-1", 3600)

		if got := EnsureAccessToken(ctx, store, f, quietLogger()); got != "access-9" {
			t.Errorf("expected access-9, got %q", got)
		}
		if rt, _ := store.RefreshToken(); rt != "refresh-1" {
			t.Errorf("expected refresh-1 kept, got %q", rt)
		}
	})

	// Concurrent requests without a cached access token are not deduplicated:
	// each one refreshes and the last write wins.
	t.Run("concurrent requests each refresh", func(t *testing.T) {
		r := &fakeRefresher{tokens: Tokens{AccessToken: "fresh", ExpiresIn: 3600}, gate: make(chan struct{})}

		var wg sync.WaitGroup
		results := make([]string, 2)
		for i := range results {
			store := session.NewMemoryStore()
			_ = store.PutSession("", "refresh-1", 3600)
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = EnsureAccessToken(ctx, store, r, quietLogger())
			}()
		}

		for r.calls.Load() < 2 {
			runtime.Gosched()
		}
		close(r.gate)
		wg.Wait()

		if r.calls.Load() != 2 {
			t.Errorf("expected 2 refresh calls, got %d", r.calls.Load())
		}
		for i, got := range results {
			if got != "fresh" {
				t.Errorf("request %d: expected fresh, got %q", i, got)
			}
		}
	})
}
