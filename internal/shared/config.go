package shared

import (
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the application configuration loaded from a TOML file.
//
// Values may be overridden from the process environment (and a local .env file) with [LoadEnv].
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Upstream    UpstreamConfig    `toml:"upstream"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string   `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string   `toml:"redirect_uri" env:"SPOTIFY_REDIRECT_URI" validate:"omitempty,url"`
	Scopes       []string `toml:"scopes"`
	AuthURL      string   `toml:"auth_url" validate:"required,url"`
	TokenURL     string   `toml:"token_url" validate:"required,url"`
	APIBaseURL   string   `toml:"api_base_url" validate:"required,url"`
}

// Configured reports whether every value needed to start an authorization flow is present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RedirectURI != ""
}

// ServerConfig contains HTTP server and session cookie settings.
type ServerConfig struct {
	Host        string `toml:"host" env:"SERVER_HOST"`
	Port        int    `toml:"port" env:"SERVER_PORT" validate:"min=1,max=65535"`
	Environment string `toml:"environment" env:"APP_ENV" validate:"omitempty,oneof=development production"`
	CookieKeyID string `toml:"cookie_key_id" validate:"required,alphanum"`
	CookieKey   string `toml:"cookie_key" env:"COOKIE_KEY" validate:"omitempty,hexadecimal,len=64"`
}

// UpstreamConfig tunes calls made to the Spotify Web API.
type UpstreamConfig struct {
	TimeoutSeconds        int     `toml:"timeout_seconds" validate:"min=1"`
	RateLimit             float64 `toml:"rate_limit" validate:"gt=0"`
	Burst                 int     `toml:"burst" validate:"min=1"`
	BreakerFailureRatio   float64 `toml:"breaker_failure_ratio" validate:"gt=0,lte=1"`
	BreakerMinRequests    uint32  `toml:"breaker_min_requests" validate:"min=1"`
	BreakerTimeoutSeconds int     `toml:"breaker_timeout_seconds" validate:"min=1"`
}

// Timeout returns the per-request HTTP client timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// BreakerTimeout returns how long an open circuit stays open before probing again.
func (u UpstreamConfig) BreakerTimeout() time.Duration {
	return time.Duration(u.BreakerTimeoutSeconds) * time.Second
}

// LoggingConfig controls the application logger.
type LoggingConfig struct {
	Level string `toml:"level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error fatal"`
	File  string `toml:"file"`
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// CookieKey decodes the hex session cookie key. A nil key with a nil error means none was configured.
func (c *Config) CookieKey() ([]byte, error) {
	if c.Server.CookieKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Server.CookieKey)
	if err != nil {
		return nil, fmt.Errorf("%w: cookie_key: %v", ErrInvalidConfig, err)
	}
	return key, nil
}

// Validate checks the configuration with the struct's validate tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %q", ErrInvalidConfig, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// LoadEnv overlays environment variables onto config.
//
// Files named in dotenv (default ".env") are loaded first; missing files are ignored and
// variables already present in the environment win.
func LoadEnv(config *Config, dotenv ...string) error {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
