// package testing contains shared testing utilities
package testing

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/hanbin8269/spotify-vs/internal/models"
)

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MustTrack builds a [models.Track] whose fields are derived from id.
func MustTrack(id string) models.Track {
	return models.Track{
		ID:          id,
		Name:        "Song " + id,
		Artists:     "Artist " + id,
		AlbumArtURL: "https://i.scdn.co/image/" + id,
		ExternalURL: "https://open.spotify.com/track/" + id,
	}
}

// MustTracks builds n tracks with ids t0..t(n-1).
func MustTracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = MustTrack("t" + strconv.Itoa(i))
	}
	return tracks
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
