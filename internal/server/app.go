package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/hanbin8269/spotify-vs/internal/auth"
	"github.com/hanbin8269/spotify-vs/internal/services"
	"github.com/hanbin8269/spotify-vs/internal/session"
	"github.com/hanbin8269/spotify-vs/internal/shared"
	"github.com/hanbin8269/spotify-vs/internal/tasks"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultCount is the round size used when the count parameter is absent.
	DefaultCount = 32
	// RoundSizes lists the accepted count values.
	RoundSizes = "8 16 32 64 128"
)

// ErrInvalidCount is returned for a count outside [RoundSizes].
var ErrInvalidCount = fmt.Errorf("%w: count must be one of %s", shared.ErrInvalidInput, RoundSizes)

var validate = validator.New()

// App serves the browser login flow and the JSON API.
type App struct {
	flow     *auth.Flow
	sessions *session.Manager
	spotify  *services.SpotifyService
	logger   *log.Logger
	sampling []tasks.SamplerOption
}

// AppOptions are the dependencies of an [App].
type AppOptions struct {
	Flow     *auth.Flow
	Sessions *session.Manager
	Spotify  *services.SpotifyService
	Logger   *log.Logger
	// Sampling is applied to every sampler the App creates.
	Sampling []tasks.SamplerOption
}

// NewApp creates an App from already built dependencies.
func NewApp(opts AppOptions) *App {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &App{
		flow:     opts.Flow,
		sessions: opts.Sessions,
		spotify:  opts.Spotify,
		logger:   opts.Logger,
		sampling: append([]tasks.SamplerOption{tasks.WithLogger(opts.Logger)}, opts.Sampling...),
	}
}

// New builds an App from the application config.
//
// Without a configured cookie key a random one is generated, so sessions do not survive a restart.
func New(cfg *shared.Config, logger *log.Logger) (*App, error) {
	key, err := cfg.CookieKey()
	if err != nil {
		return nil, err
	}
	if key == nil {
		logger.Warn("no cookie key configured, generating an ephemeral one")
		key = session.NewKey()
	}

	codec, err := session.NewCodec(cfg.Server.CookieKeyID, map[string][]byte{cfg.Server.CookieKeyID: key})
	if err != nil {
		return nil, err
	}

	if !cfg.Credentials.Spotify.Configured() {
		logger.Warn("spotify credentials are incomplete, login will fail until they are set")
	}

	return NewApp(AppOptions{
		Flow:     auth.NewFlow(auth.ConfigFrom(cfg.Credentials.Spotify), shared.WithLogger(logger, "component", "auth")),
		Sessions: session.NewManager(codec, cfg.IsProduction()),
		Spotify:  services.NewSpotifyService(services.OptionsFrom(cfg, shared.WithLogger(logger, "component", "spotify"))),
		Logger:   logger,
	}), nil
}

// Router registers every route behind [DefaultMiddleware].
func (a *App) Router() *BasicRouter {
	r := NewBasicRouter()
	r.Use(DefaultMiddleware(a.logger)...)

	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.handleHome))
	r.Handle(http.MethodGet, "/auth/login", http.HandlerFunc(a.handleLogin))
	r.Handle(http.MethodGet, "/auth/callback", http.HandlerFunc(a.handleCallback))
	r.Handle(http.MethodPost, "/auth/logout", http.HandlerFunc(a.handleLogout))
	r.Handle(http.MethodGet, "/api/profile", http.HandlerFunc(a.handleProfile))
	r.Handle(http.MethodGet, "/api/sample-tracks", http.HandlerFunc(a.handleSampleTracks))
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(handleHealth))
	r.Handle(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	target, err := a.flow.Login(a.sessions.Store(w, r))
	if err != nil {
		a.logger.Error("failed to start spotify login", "error", err)
		writeError(w, http.StatusInternalServerError, "Spotify login is not configured")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (a *App) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := a.flow.Callback(r.Context(), a.sessions.Store(w, r), auth.CallbackParams{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	})
	if err == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	reason := auth.ReasonTokenExchangeFailed
	params := url.Values{}
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		reason = authErr.Reason
		if authErr.ProviderCode != "" {
			params.Set("provider_code", authErr.ProviderCode)
		}
	}
	params.Set("auth_error", string(reason))
	a.logger.Warn("spotify authorization failed", "reason", reason, "error", err)
	http.Redirect(w, r, "/?"+params.Encode(), http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.flow.Logout(a.sessions.Store(w, r))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleProfile(w http.ResponseWriter, r *http.Request) {
	store := a.sessions.Store(w, r)
	token := auth.EnsureAccessToken(r.Context(), store, a.flow, a.logger)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	profile, err := a.spotify.For(token, store.Clear).Profile(r.Context())
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "session expired")
	case err != nil:
		a.logger.Error("failed to load profile", "error", err, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to load profile")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
	}
}

func (a *App) handleSampleTracks(w http.ResponseWriter, r *http.Request) {
	count, err := parseCount(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "count must be one of 8, 16, 32, 64, 128")
		return
	}

	store := a.sessions.Store(w, r)
	token := auth.EnsureAccessToken(r.Context(), store, a.flow, a.logger)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	sampler := tasks.NewSampler(tasks.LikedTracks(a.spotify.For(token, store.Clear)), a.sampling...)
	tracks, err := sampler.Draw(r.Context(), count, nil)
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "session expired")
	case errors.Is(err, shared.ErrEmptyLibrary):
		writeError(w, http.StatusNotFound, "no liked tracks")
	case errors.Is(err, shared.ErrInsufficientData):
		writeError(w, http.StatusNotFound, "not enough liked tracks")
	case err != nil:
		a.logger.Error("failed to sample liked tracks", "error", err, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to load liked tracks")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
	}
}

// HomeResponse is where login and logout land. AuthError and ProviderCode echo a failed callback.
type HomeResponse struct {
	Authenticated bool   `json:"authenticated"`
	AuthError     string `json:"auth_error,omitempty"`
	ProviderCode  string `json:"provider_code,omitempty"`
}

// handleHome reports whether the browser holds a session. It never refreshes.
func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	store := a.sessions.Store(w, r)
	_, hasAccess := store.AccessToken()
	_, hasRefresh := store.RefreshToken()
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, HomeResponse{
		Authenticated: hasAccess || hasRefresh,
		AuthError:     q.Get("auth_error"),
		ProviderCode:  q.Get("provider_code"),
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseCount reads the round size, defaulting to [DefaultCount] when absent.
func parseCount(q url.Values) (int, error) {
	if !q.Has("count") {
		return DefaultCount, nil
	}
	n, err := strconv.Atoi(q.Get("count"))
	if err != nil {
		return 0, ErrInvalidCount
	}
	if err := validate.Var(n, "oneof="+RoundSizes); err != nil {
		return 0, ErrInvalidCount
	}
	return n, nil
}
