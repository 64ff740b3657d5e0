package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-playground/validator/v10"
	"github.com/hanbin8269/spotify-vs/internal/formatter"
	"github.com/hanbin8269/spotify-vs/internal/models"
	"github.com/hanbin8269/spotify-vs/internal/server"
	"github.com/hanbin8269/spotify-vs/internal/services"
	"github.com/hanbin8269/spotify-vs/internal/shared"
	"github.com/hanbin8269/spotify-vs/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultLogFile = "./tmp/spotify-vs.log"

var validate = validator.New()

// checkCount accepts the bracket sizes offered by the web API. zeroOK allows 0 (ask interactively).
func checkCount(count int, zeroOK bool) error {
	if zeroOK && count == 0 {
		return nil
	}
	if err := validate.Var(count, "oneof="+server.RoundSizes); err != nil {
		return fmt.Errorf("%w: count must be one of %s, got %d", shared.ErrInvalidArgument, server.RoundSizes, count)
	}
	return nil
}

// Play signs in and runs the bracket TUI.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	count := cmd.Int("count")
	if err := checkCount(count, true); err != nil {
		return err
	}
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	s, err := r.login(ctx, config)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logFile := config.Logging.File
	if logFile == "" {
		logFile = defaultLogFile
	}
	fileLogger, err := shared.NewFileLogger(logFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(config.Logging.Level))
	r.SetLogger(fileLogger)

	sampler, err := r.sampler(ctx, config, s)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, sampler, count)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if champ, ok := model.Engine().Champion(); ok {
		r.writePlain("🏆 %s by %s\n   %s\n", champ.Name, champ.Artists, champ.ExternalURL)
	}
	return nil
}

// Sample signs in and prints one draw of liked tracks.
func (r *Runner) Sample(ctx context.Context, cmd *cli.Command) error {
	count := cmd.Int("count")
	if err := checkCount(count, false); err != nil {
		return err
	}
	var format formatter.Format
	if f := cmd.String("format"); f != "" {
		parsed, err := formatter.ParseFormat(f)
		if err != nil {
			return err
		}
		format = parsed
	}
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	s, err := r.login(ctx, config)
	if err != nil {
		return err
	}
	sampler, err := r.sampler(ctx, config, s)
	if err != nil {
		return err
	}

	tracks, err := sampler.Draw(ctx, count, nil)
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return fmt.Errorf("%w: Spotify rejected the session", shared.ErrNotAuthenticated)
	case err != nil:
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string][]models.Track{"tracks": tracks}, cmd.Bool("pretty"))
	}
	if format != "" {
		data, err := formatter.Export(format, fmt.Sprintf("%d liked tracks", len(tracks)), tracks)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	r.writePlainHeader(fmt.Sprintf("%d liked tracks", len(tracks)))
	for i, t := range tracks {
		r.writePlain("%3d. %s - %s\n", i+1, t.Artists, t.Name)
	}
	return nil
}
