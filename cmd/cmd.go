// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file (defaults to ./config.toml when present)",
	}
}

func countFlag(value int) cli.Flag {
	return &cli.IntFlag{
		Name:    "count",
		Aliases: []string{"n"},
		Usage:   "Bracket size: 8, 16, 32, 64 or 128",
		Value:   value,
	}
}

// serveCommand runs the web server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the login flow and JSON API over HTTP",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// playCommand runs a bracket in the terminal
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "play",
		Aliases: []string{"tui"},
		Usage:   "Sign in with Spotify and play a bracket of liked songs in the terminal",
		Flags: []cli.Flag{
			configFlag(),
			countFlag(0),
		},
		Action: r.Play,
	}
}

// sampleCommand prints a drawn set of tracks
func sampleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "Sign in with Spotify and print a random draw of liked songs",
		Flags: []cli.Flag{
			configFlag(),
			countFlag(32),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format: text, csv or markdown",
			},
		},
		Action: r.Sample,
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration helpers",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   defaultConfigPath,
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "key",
				Usage:  "Print a new random cookie_key",
				Action: r.ConfigKey,
			},
			{
				Name:   "check",
				Usage:  "Validate the configuration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigCheck,
			},
		},
	}
}
