package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/pseudonyms/cmd/app/commands"
	"github.com/allisson/pseudonyms/internal/app"
	"github.com/allisson/pseudonyms/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-pepper",
			Usage: "Generate a new pepper for key derivation",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI used to encrypt the pepper (e.g., base64key://, gcpkms://...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreatePepper(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "issue-token",
			Usage: "Issue a bearer token for a principal",
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:     "principal-id",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Principal the token authenticates",
				},
				&cli.DurationFlag{
					Name:  "ttl",
					Usage: "Token lifetime (defaults to AUTH_TOKEN_EXPIRATION_SECONDS)",
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
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				tokenService, err := container.TokenService()
				if err != nil {
					return err
				}

				ttl := cmd.Duration("ttl")
				if ttl <= 0 {
					ttl = cfg.AuthTokenExpiration
				}

				return commands.RunIssueToken(
					tokenService,
					commands.DefaultIO().Writer,
					cmd.Int64("principal-id"),
					ttl,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "migrate-identities",
			Usage: "Encrypt the real identifiers of plaintext members",
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:    "group-id",
					Aliases: []string{"g"},
					Usage:   "Group to migrate",
				},
				&cli.BoolFlag{
					Name:  "all",
					Usage: "Migrate every group holding plaintext members",
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

				migrationUseCase, err := container.MigrationUseCase()
				if err != nil {
					return err
				}

				return commands.RunMigrateIdentities(
					ctx,
					migrationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Int64("group-id"),
					cmd.Bool("all"),
					cmd.String("format"),
				)
			},
		},
	}
}
