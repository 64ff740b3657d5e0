package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hanbin8269/spotify-vs/internal/models"
	"github.com/hanbin8269/spotify-vs/internal/shared"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"
	breakerName    = "spotify"

	// MaxPageSize is the largest page /me/tracks accepts.
	MaxPageSize = 50

	maxErrorBody = 64 << 10
)

// BreakerOptions tunes the upstream circuit breaker.
type BreakerOptions struct {
	// FailureRatio of failed to total requests that opens the circuit.
	FailureRatio float64
	// MinRequests before FailureRatio is evaluated.
	MinRequests uint32
	// Timeout is how long the circuit stays open before a probe request.
	Timeout time.Duration
}

// Options configures a [SpotifyService]. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// RateLimit is the sustained number of requests per second; Burst the bucket size.
	RateLimit float64
	Burst     int
	Breaker   BreakerOptions
	Logger    *log.Logger
}

// OptionsFrom maps the application config.
func OptionsFrom(cfg *shared.Config, logger *log.Logger) Options {
	return Options{
		BaseURL:    cfg.Credentials.Spotify.APIBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Upstream.Timeout()},
		RateLimit:  cfg.Upstream.RateLimit,
		Burst:      cfg.Upstream.Burst,
		Breaker: BreakerOptions{
			FailureRatio: cfg.Upstream.BreakerFailureRatio,
			MinRequests:  cfg.Upstream.BreakerMinRequests,
			Timeout:      cfg.Upstream.BreakerTimeout(),
		},
		Logger: logger,
	}
}

// SpotifyService sends bearer-authorized requests to the Spotify Web API.
//
// It is shared by all users: it holds no tokens, only the HTTP client, a rate limiter and a
// circuit breaker. Use [SpotifyService.For] to get a client bound to one user's access token.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	logger     *log.Logger
}

// NewSpotifyService creates a new Spotify Web API client.
func NewSpotifyService(opts Options) *SpotifyService {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.Breaker.FailureRatio <= 0 {
		opts.Breaker.FailureRatio = 0.5
	}
	if opts.Breaker.MinRequests == 0 {
		opts.Breaker.MinRequests = 5
	}
	if opts.Breaker.Timeout <= 0 {
		opts.Breaker.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	logger := opts.Logger
	bo := opts.Breaker
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     bo.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bo.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bo.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			circuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// A caller giving up is not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	circuitBreakerState.WithLabelValues(breakerName).Set(0)

	return &SpotifyService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		breaker:    gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:     logger,
	}
}

// BreakerState returns the current state of the upstream circuit breaker.
func (s *SpotifyService) BreakerState() gobreaker.State {
	return s.breaker.State()
}

// RequestOptions describes one Web API call. Method defaults to GET; query values that are empty are skipped.
type RequestOptions struct {
	Method string
	Path   string
	Query  map[string]string
	Body   any
}

// Request calls the Web API with accessToken and decodes a 2xx JSON payload into result (which may be nil).
//
// A 401 yields [ErrUnauthorized]; any other failure is an [*UpstreamError]. Only transport
// errors and 5xx responses count against the circuit breaker; an open circuit is reported as 503.
func (s *SpotifyService) Request(ctx context.Context, accessToken string, opts RequestOptions, result any) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint, err := s.buildURL(opts.Path, opts.Query)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	var payload []byte
	if opts.Body != nil {
		if payload, err = json.Marshal(opts.Body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	start := time.Now()
	resp, err := s.breaker.Execute(func() (*http.Response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			defer resp.Body.Close()
			return nil, &UpstreamError{Status: resp.StatusCode, Body: readBody(resp.Body)}
		}
		return resp, nil
	})
	s.observe(method, opts.Path, resp, err, time.Since(start))

	if err != nil {
		var ue *UpstreamError
		switch {
		case errors.As(err, &ue):
			return ue
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return &UpstreamError{Status: http.StatusServiceUnavailable, Err: err}
		default:
			return &UpstreamError{Status: http.StatusBadGateway, Err: err}
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &UpstreamError{Status: resp.StatusCode, Body: readBody(resp.Body)}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (s *SpotifyService) buildURL(path string, query map[string]string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := url.Parse(s.baseURL + path)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, v := range query {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *SpotifyService) observe(method, path string, resp *http.Response, err error, elapsed time.Duration) {
	status := 0
	var ue *UpstreamError
	switch {
	case resp != nil:
		status = resp.StatusCode
	case errors.As(err, &ue):
		status = ue.Status
	}

	upstreamRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	upstreamRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
	s.logger.Debug("spotify request", "method", method, "path", path, "status", status, "duration", elapsed)
}

func readBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return string(b)
}

// UserClient is a [SpotifyService] bound to one user's access token.
type UserClient struct {
	svc            *SpotifyService
	accessToken    string
	onUnauthorized func()
}

// For binds the service to accessToken. onUnauthorized, when set, runs every time Spotify
// answers 401 so the caller can end the session.
func (s *SpotifyService) For(accessToken string, onUnauthorized func()) *UserClient {
	return &UserClient{svc: s, accessToken: accessToken, onUnauthorized: onUnauthorized}
}

// Request is [SpotifyService.Request] with the bound token.
func (c *UserClient) Request(ctx context.Context, opts RequestOptions, result any) error {
	err := c.svc.Request(ctx, c.accessToken, opts, result)
	if errors.Is(err, ErrUnauthorized) && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return err
}

// SavedTracks retrieves one page of the user's saved tracks. limit is clamped to 1..[MaxPageSize].
func (c *UserClient) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var page SpotifyPaginatedTracks
	err := c.Request(ctx, RequestOptions{
		Path:  "/me/tracks",
		Query: map[string]string{"limit": strconv.Itoa(limit), "offset": strconv.Itoa(offset)},
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Profile retrieves and normalizes the current user's profile.
func (c *UserClient) Profile(ctx context.Context) (models.Profile, error) {
	var user SpotifyUser
	if err := c.Request(ctx, RequestOptions{Path: "/me"}, &user); err != nil {
		return models.Profile{}, err
	}
	return user.ToProfile(), nil
}
