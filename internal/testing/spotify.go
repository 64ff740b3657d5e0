package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
)

// FakeSpotify is an httptest server standing in for both the Spotify accounts service
// (POST /api/token) and the Web API (GET /v1/me, GET /v1/me/tracks).
//
// Library entries are served with offset/limit pagination. A nil entry is served as a
// saved item whose track is null, like a removed or unavailable song.
type FakeSpotify struct {
	Server *httptest.Server

	mu            sync.Mutex
	library       []map[string]any
	total         int
	tracksStatus  int
	profileStatus int
	tokenStatus   int
	profile       map[string]any
	token         map[string]any
	offsets       []int
	tokenForms    []url.Values
	calls         map[string]int
	bearers       []string
}

// NewFakeSpotify starts a fake server that is closed when t finishes.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{
		total: -1,
		calls: map[string]int{},
		profile: map[string]any{
			"id":           "user-1",
			"display_name": "Test User",
			"followers":    map[string]any{"total": 42},
			"images":       []any{map[string]any{"url": "https://i.scdn.co/image/user-1"}},
		},
		token: map[string]any{
			"access_token":  "access-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-1",
			"scope":         "user-library-read",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/me/tracks", f.handleTracks)
	mux.HandleFunc("GET /v1/me", f.handleProfile)
	mux.HandleFunc("POST /api/token", f.handleToken)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL of the fake accounts and API host.
func (f *FakeSpotify) URL() string { return f.Server.URL }

// APIBaseURL is the Web API base the service client should be pointed at.
func (f *FakeSpotify) APIBaseURL() string { return f.Server.URL + "/v1" }

// TokenURL is the token endpoint the OAuth client should be pointed at.
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }

// SetLibrary replaces the saved-track library with n generated tracks (ids track-0 ...).
func (f *FakeSpotify) SetLibrary(n int) {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = TrackJSON("track-"+strconv.Itoa(i), "Song "+strconv.Itoa(i), "Artist A", "Artist B")
	}
	f.SetLibraryItems(items)
}

// SetLibraryItems replaces the library with the given track objects. Nil entries are unavailable tracks.
func (f *FakeSpotify) SetLibraryItems(items []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.library = items
}

// SetTotal overrides the total reported in each page. A negative value reports the library size.
func (f *FakeSpotify) SetTotal(total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total = total
}

// FailTracks makes /v1/me/tracks answer with status. Zero restores normal behavior.
func (f *FakeSpotify) FailTracks(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracksStatus = status
}

// FailProfile makes /v1/me answer with status.
func (f *FakeSpotify) FailProfile(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileStatus = status
}

// FailToken makes the token endpoint answer with status and an OAuth error body.
func (f *FakeSpotify) FailToken(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus = status
}

// SetProfile replaces the /v1/me payload.
func (f *FakeSpotify) SetProfile(profile map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = profile
}

// SetToken replaces the token endpoint payload.
func (f *FakeSpotify) SetToken(token map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// Calls reports how many requests reached path (e.g. "/v1/me/tracks").
func (f *FakeSpotify) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// Offsets lists the offset of every saved-tracks page request, in order.
func (f *FakeSpotify) Offsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

// TokenForms lists the form bodies posted to the token endpoint, in order.
func (f *FakeSpotify) TokenForms() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.tokenForms...)
}

// Bearers lists the Authorization headers sent to the Web API, in order.
func (f *FakeSpotify) Bearers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bearers...)
}

func (f *FakeSpotify) handleTracks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++
	f.bearers = append(f.bearers, r.Header.Get("Authorization"))

	if f.tracksStatus != 0 {
		writeJSON(w, f.tracksStatus, errorBody(f.tracksStatus))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}
	f.offsets = append(f.offsets, offset)

	total := f.total
	if total < 0 {
		total = len(f.library)
	}

	items := []any{}
	for i := offset; i < offset+limit && i < len(f.library); i++ {
		var track any
		if f.library[i] != nil {
			track = f.library[i]
		}
		items = append(items, map[string]any{"added_at": "2024-01-01T00:00:00Z", "track": track})
	}

	var next any
	if offset+limit < total {
		next = fmt.Sprintf("%s/v1/me/tracks?offset=%d&limit=%d", f.Server.URL, offset+limit, limit)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"href":     f.Server.URL + r.URL.RequestURI(),
		"items":    items,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"next":     next,
		"previous": nil,
	})
}

func (f *FakeSpotify) handleProfile(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++
	f.bearers = append(f.bearers, r.Header.Get("Authorization"))

	if f.profileStatus != 0 {
		writeJSON(w, f.profileStatus, errorBody(f.profileStatus))
		return
	}
	writeJSON(w, http.StatusOK, f.profile)
}

func (f *FakeSpotify) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++

	form := url.Values{}
	for k, v := range r.PostForm {
		form[k] = v
	}
	if id, secret, ok := r.BasicAuth(); ok {
		form.Set("basic_client_id", id)
		form.Set("basic_client_secret", secret)
	}
	f.tokenForms = append(f.tokenForms, form)

	if f.tokenStatus != 0 {
		writeJSON(w, f.tokenStatus, map[string]any{"error": "invalid_grant", "error_description": "Invalid authorization code"})
		return
	}
	writeJSON(w, http.StatusOK, f.token)
}

// TrackJSON builds a Web API track object.
func TrackJSON(id, name string, artists ...string) map[string]any {
	as := make([]any, len(artists))
	for i, a := range artists {
		as[i] = map[string]any{"id": "artist-" + a, "name": a}
	}
	return map[string]any{
		"id":          id,
		"name":        name,
		"artists":     as,
		"album":       map[string]any{"id": "album-" + id, "name": "Album", "images": []any{map[string]any{"url": "https://i.scdn.co/image/" + id, "height": 640, "width": 640}}},
		"preview_url": "https://p.scdn.co/mp3-preview/" + id,
		"external_urls": map[string]any{
			"spotify": "https://open.spotify.com/track/" + id,
		},
	}
}

func errorBody(status int) map[string]any {
	return map[string]any{"error": map[string]any{"status": status, "message": http.StatusText(status)}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
