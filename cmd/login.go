package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hanbin8269/spotify-vs/internal/auth"
	"github.com/hanbin8269/spotify-vs/internal/server"
	"github.com/hanbin8269/spotify-vs/internal/services"
	"github.com/hanbin8269/spotify-vs/internal/session"
	"github.com/hanbin8269/spotify-vs/internal/shared"
	"github.com/hanbin8269/spotify-vs/internal/tasks"
)

// terminalSession is a signed-in user for the lifetime of one command.
type terminalSession struct {
	flow  *auth.Flow
	store session.Store
}

// login runs the authorization code flow with a local HTTP server on the redirect URI's host.
func (r *Runner) login(ctx context.Context, config *shared.Config) (*terminalSession, error) {
	spotify := config.Credentials.Spotify
	if !spotify.Configured() {
		return nil, fmt.Errorf("%w: set client_id, client_secret and redirect_uri in config.toml or the environment", shared.ErrMissingCredentials)
	}

	redirect, err := url.Parse(spotify.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	authConfig := auth.ConfigFrom(spotify)
	authConfig.HTTPClient = r.httpClient
	flow := auth.NewFlow(authConfig, shared.WithLogger(r.logger, "component", "auth"))
	store := session.NewMemoryStore()

	authURL, err := flow.Login(store)
	if err != nil {
		return nil, err
	}

	callback, err := server.NewCallbackHandler(flow, store, spotify.RedirectURI)
	if err != nil {
		return nil, err
	}
	router := server.NewBasicRouter()
	router.Use(server.RequestID, server.Logging(r.logger))
	router.Handler(callback)

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}
	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting callback server", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", r.callbackTimeout)

	timeout := time.NewTimer(r.callbackTimeout)
	defer timeout.Stop()

	select {
	case err := <-callback.Result():
		if err != nil {
			return nil, err
		}
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, r.callbackTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r.writePlain("✓ Signed in\n")
	return &terminalSession{flow: flow, store: store}, nil
}

// sampler builds a track sampler for the signed-in user.
func (r *Runner) sampler(ctx context.Context, config *shared.Config, s *terminalSession) (*tasks.Sampler, error) {
	token := auth.EnsureAccessToken(ctx, s.store, s.flow, r.logger)
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	opts := services.OptionsFrom(config, shared.WithLogger(r.logger, "component", "spotify"))
	opts.HTTPClient = r.httpClient
	fetcher := s.likedTracks(services.NewSpotifyService(opts), r.logger)
	return tasks.NewSampler(fetcher, tasks.WithLogger(r.logger)), nil
}

// likedTracks fetches saved-track pages with a token resolved per page, refreshing it when the
// access token has expired since the last draw.
func (s *terminalSession) likedTracks(svc *services.SpotifyService, logger *log.Logger) tasks.PageFetcher {
	return tasks.PageFetcherFunc(func(ctx context.Context, limit, offset int) (tasks.Page, error) {
		token := auth.EnsureAccessToken(ctx, s.store, s.flow, logger)
		if token == "" {
			return tasks.Page{}, shared.ErrNotAuthenticated
		}
		return tasks.LikedTracks(svc.For(token, s.store.Clear)).FetchPage(ctx, limit, offset)
	})
}
