package services

import (
	"fmt"
	"net/http"

	"github.com/hanbin8269/spotify-vs/internal/shared"
)

// ErrUnauthorized is returned when Spotify rejects the access token (HTTP 401).
var ErrUnauthorized = shared.ErrUnauthorized

// UpstreamError is a non-auth failure from the Spotify Web API.
//
// Body is kept for logs only and must not be sent to clients.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("spotify API error: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("spotify API error: status %d", e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is matches [shared.ErrAPIRequest] so callers can test for any upstream failure, and
// [shared.ErrServiceUnavailable] for a 503, including an open circuit breaker.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrServiceUnavailable:
		return e.Status == http.StatusServiceUnavailable
	}
	return false
}
