package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/pseudonyms/cmd/app/commands"
	"github.com/allisson/pseudonyms/internal/app"
	"github.com/allisson/pseudonyms/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "verify-audit-events",
			Usage: "Verify the signatures of stored audit events",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "from",
					Aliases: []string{"s"},
					Value:   time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"),
					Usage:   "Start date in YYYY-MM-DD or YYYY-MM-DD HH:MM:SS format",
				},
				&cli.StringFlag{
					Name:    "to",
					Aliases: []string{"e"},
					Value:   time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02"),
					Usage:   "End date in YYYY-MM-DD or YYYY-MM-DD HH:MM:SS format",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   10000,
					Usage:   "Maximum number of events to check",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				if err := cfg.Validate(); err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				verifier, err := container.AuditEventVerifier()
				if err != nil {
					return err
				}

				return commands.RunVerifyAuditEvents(
					ctx,
					verifier,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("from"),
					cmd.String("to"),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
	}
}
