package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/hanbin8269/spotify-vs/internal/session"
	"github.com/hanbin8269/spotify-vs/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the example configuration to --path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Wrote %s\n", path)
	r.writePlain("  Set client_id and client_secret, or export SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET.\n")
	return nil
}

// ConfigKey prints a fresh hex-encoded cookie key.
func (r *Runner) ConfigKey(ctx context.Context, cmd *cli.Command) error {
	return r.writePlain("%s\n", hex.EncodeToString(session.NewKey()))
}

// ConfigCheck validates the configuration and reports missing credentials.
func (r *Runner) ConfigCheck(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if !config.Credentials.Spotify.Configured() {
		return fmt.Errorf("%w: client_id, client_secret and redirect_uri are required to sign in", shared.ErrMissingCredentials)
	}
	r.writePlain("✓ Configuration is valid\n")
	return nil
}
