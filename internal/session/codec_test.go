package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec("k1", map[string][]byte{"k1": NewKey()})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return c
}

func TestCodec(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("round trip", func(t *testing.T) {
		c := newTestCodec(t)
		sealed, err := c.Seal(AccessTokenKey, "tok-123", now.Add(time.Hour))
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		if strings.Contains(sealed, "tok-123") {
			t.Error("sealed value leaks plaintext")
		}
		if !strings.HasPrefix(sealed, "k1.") {
			t.Errorf("expected key id prefix, got %q", sealed)
		}

		got, err := c.Open(AccessTokenKey, sealed, now)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if got != "tok-123" {
			t.Errorf("expected tok-123, got %q", got)
		}
	})

	t.Run("expired", func(t *testing.T) {
		c := newTestCodec(t)
		sealed, _ := c.Seal(AccessTokenKey, "tok", now.Add(time.Minute))
		if _, err := c.Open(AccessTokenKey, sealed, now.Add(time.Minute)); !errors.Is(err, ErrCookieExpired) {
			t.Errorf("expected ErrCookieExpired, got %v", err)
		}
	})

	t.Run("wrong name", func(t *testing.T) {
		c := newTestCodec(t)
		sealed, _ := c.Seal(StateKey, "abc", now.Add(time.Minute))
		if _, err := c.Open(VerifierKey, sealed, now); !errors.Is(err, ErrCookieInvalid) {
			t.Errorf("expected ErrCookieInvalid, got %v", err)
		}
	})

	t.Run("tampered", func(t *testing.T) {
		c := newTestCodec(t)
		sealed, _ := c.Seal(StateKey, "abc", now.Add(time.Minute))
		i := len("k1.") + 10
		repl := byte('A')
		if sealed[i] == 'A' {
			repl = 'B'
		}
		tampered := sealed[:i] + string(repl) + sealed[i+1:]
		if _, err := c.Open(StateKey, tampered, now); err == nil {
			t.Error("expected error for tampered value")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		c := newTestCodec(t)
		for _, in := range []string{"", "nodot", "k1.", ".abc", "k1.!!!", strings.Repeat("a", maxCookieLen+1)} {
			if _, err := c.Open(StateKey, in, now); err == nil {
				t.Errorf("expected error for %q", in)
			}
		}
	})

	t.Run("unknown key id", func(t *testing.T) {
		c := newTestCodec(t)
		if _, err := c.Open(StateKey, "k9.AAAA", now); !errors.Is(err, ErrCookieInvalid) {
			t.Errorf("expected ErrCookieInvalid, got %v", err)
		}
	})

	t.Run("rotation", func(t *testing.T) {
		oldKey, newKey := NewKey(), NewKey()
		before, _ := NewCodec("k1", map[string][]byte{"k1": oldKey})
		sealed, _ := before.Seal(RefreshTokenKey, "refresh", now.Add(time.Hour))

		after, err := NewCodec("k2", map[string][]byte{"k1": oldKey, "k2": newKey})
		if err != nil {
			t.Fatalf("NewCodec failed: %v", err)
		}
		got, err := after.Open(RefreshTokenKey, sealed, now)
		if err != nil {
			t.Fatalf("Open with rotated keys failed: %v", err)
		}
		if got != "refresh" {
			t.Errorf("expected refresh, got %q", got)
		}
	})
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name  string
		keyID string
		keys  map[string][]byte
	}{
		{"no keys", "k1", nil},
		{"missing key id", "k2", map[string][]byte{"k1": NewKey()}},
		{"short key", "k1", map[string][]byte{"k1": []byte("short")}},
		{"dotted id", "k.1", map[string][]byte{"k.1": NewKey()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCodec(tt.keyID, tt.keys); !errors.Is(err, ErrCookieConfig) {
				t.Errorf("expected ErrCookieConfig, got %v", err)
			}
		})
	}
}
