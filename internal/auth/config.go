package auth

import (
	"net/http"
	"strings"

	"github.com/hanbin8269/spotify-vs/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// DefaultScopes is requested when the configuration names none.
var DefaultScopes = []string{"user-library-read"}

// Config holds the OAuth client registration and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string

	// HTTPClient is used for token requests. Defaults to [http.DefaultClient].
	HTTPClient *http.Client
}

// ConfigFrom maps the Spotify credentials section of the application config.
func ConfigFrom(c shared.SpotifyConfig) Config {
	return Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURI:  c.RedirectURI,
		Scopes:       c.Scopes,
		AuthURL:      c.AuthURL,
		TokenURL:     c.TokenURL,
	}
}

func (c Config) ready() bool {
	return strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != "" &&
		strings.TrimSpace(c.RedirectURI) != ""
}

// oauth2Config builds the x/oauth2 client. Client credentials are always sent with HTTP Basic.
func (c Config) oauth2Config() *oauth2.Config {
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	authURL, tokenURL := c.AuthURL, c.TokenURL
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}
