package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/hanbin8269/spotify-vs/internal/auth"
	"github.com/hanbin8269/spotify-vs/internal/session"
)

// CallbackHandler completes a terminal login: it serves the redirect URI on a local listener,
// runs [auth.Flow.Callback] against an in-process store and reports the outcome once.
type CallbackHandler struct {
	flow       *auth.Flow
	store      session.Store
	path       string
	resultChan chan error
	once       sync.Once
	mu         sync.Mutex
	handled    bool
}

var _ Handler = (*CallbackHandler)(nil)

// NewCallbackHandler serves the path of redirectURI and stores tokens in store.
func NewCallbackHandler(flow *auth.Flow, store session.Store, redirectURI string) (*CallbackHandler, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect uri: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return &CallbackHandler{
		flow:       flow,
		store:      store,
		path:       path,
		resultChan: make(chan error, 1),
	}, nil
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{http.MethodGet + " " + h.path}
}

// ServeHTTP handles the provider redirect. Only the first request carrying a code or an
// error is processed; other requests are answered without touching the pending login.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("code") && !q.Has("error") {
		renderPage(w, http.StatusBadRequest, "Waiting for Authorization", "Finish signing in with Spotify in this browser.")
		return
	}

	h.mu.Lock()
	if h.handled {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.handled = true
	h.mu.Unlock()

	// The request context ends with this response; the exchange must not.
	err := h.flow.Callback(context.WithoutCancel(r.Context()), h.store, auth.CallbackParams{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	})
	h.Send(err)

	if err != nil {
		status := http.StatusBadRequest
		var authErr *auth.AuthError
		if errors.As(err, &authErr) && authErr.Reason == auth.ReasonTokenExchangeFailed {
			status = http.StatusBadGateway
		}
		renderPage(w, status, "Authorization Failed", "Return to the terminal for details.")
		return
	}
	renderPage(w, http.StatusOK, "✓ Authorization Successful", "You can close this window and return to the terminal.")
}

// Send reports the login outcome through the channel (only once).
func (h *CallbackHandler) Send(err error) {
	h.once.Do(func() {
		h.resultChan <- err
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving login completion.
//
// Channel will receive exactly one value, nil on success, and then be closed.
func (h *CallbackHandler) Result() <-chan error {
	return h.resultChan
}

func renderPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>%[1]s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <p>%[2]s</p>
    </div>
</body>
</html>
`, title, message)
}
