package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	r := &runner{}

	app := &cli.Command{
		Name:    "vibeflow",
		Usage:   "Personal music library with a terminal player and vibe mixes",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a configuration file (default: XDG config, then ./config.toml)",
			},
			&cli.StringFlag{
				Name:  "server",
				Usage: "Server URL, overrides client.server_url",
			},
			&cli.BoolFlag{
				Name:  "local",
				Usage: "Use the local database instead of a server",
			},
		},
		Before:   r.load,
		Commands: r.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (r *runner) register() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "serve",
			Usage: "Run the HTTP API",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "addr",
					Usage: "Listen address, overrides server.addr",
				},
			},
			Action: r.serve,
		},
		{
			Name:  "signup",
			Usage: "Create an account on the server and log in",
			Flags: append(credentialFlags(),
				&cli.StringFlag{
					Name:  "name",
					Usage: "Display name",
				},
			),
			Action: r.signup,
		},
		{
			Name:   "login",
			Usage:  "Log in to the server",
			Flags:  credentialFlags(),
			Action: r.login,
		},
		{
			Name:   "logout",
			Usage:  "End the saved session",
			Action: r.logout,
		},
		{
			Name:   "play",
			Usage:  "Open the terminal player",
			Action: r.play,
		},
		{
			Name:   "songs",
			Usage:  "List the library",
			Action: r.songs,
		},
		{
			Name:      "import",
			Usage:     "Add an audio file or a YouTube URL to the library",
			ArgsUsage: "<file|url>",
			Action:    r.importSong,
		},
		{
			Name:      "vibe",
			Usage:     "Suggest songs matching a listening history (default: your favorites)",
			ArgsUsage: "[song-id...]",
			Action:    r.vibe,
		},
		{
			Name:  "cookies",
			Usage: "Manage the YouTube cookies used for extraction",
			Commands: []*cli.Command{
				{
					Name:   "status",
					Usage:  "Show whether cookies are stored",
					Action: r.cookiesStatus,
				},
				{
					Name:      "set",
					Usage:     "Upload a Netscape cookies.txt file",
					ArgsUsage: "<cookies.txt>",
					Action:    r.cookiesSet,
				},
				{
					Name:   "delete",
					Usage:  "Remove stored cookies",
					Action: r.cookiesDelete,
				},
			},
		},
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "email",
			Usage: "Account email, overrides client.email",
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Account password",
			Sources: cli.EnvVars("VIBEFLOW_PASSWORD"),
		},
	}
}
