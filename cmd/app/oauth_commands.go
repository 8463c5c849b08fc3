package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/tokenkeeper/cmd/app/commands"
	"github.com/allisson/tokenkeeper/internal/app"
	"github.com/allisson/tokenkeeper/internal/config"
)

func getApplicationCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-application",
			Usage: "Register a new OAuth application",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "client-id",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Stable external client identifier",
				},
				&cli.StringFlag{
					Name:    "display-name",
					Aliases: []string{"n"},
					Usage:   "Human-readable application name",
				},
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Value:   "confidential",
					Usage:   "Application type: 'confidential' or 'public'",
				},
				&cli.StringFlag{
					Name:  "consent-type",
					Value: "explicit",
					Usage: "Consent type: 'explicit', 'external', 'implicit' or 'systematic'",
				},
				&cli.StringSliceFlag{
					Name:    "permission",
					Aliases: []string{"p"},
					Usage:   "Granted permission (repeatable)",
				},
				&cli.StringSliceFlag{
					Name:    "redirect-uri",
					Aliases: []string{"r"},
					Usage:   "Absolute redirect URI (repeatable)",
				},
				&cli.StringSliceFlag{
					Name:  "post-logout-redirect-uri",
					Usage: "Absolute post-logout redirect URI (repeatable)",
				},
				&cli.StringSliceFlag{
					Name:  "requirement",
					Usage: "Client requirement such as PKCE (repeatable)",
				},
				&cli.BoolFlag{
					Name:  "manage-tokens",
					Value: false,
					Usage: "Allow the application to call the token management API",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				applicationUseCase, err := container.ApplicationUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateApplication(
					ctx,
					applicationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					commands.CreateApplicationParams{
						ClientID:               cmd.String("client-id"),
						DisplayName:            cmd.String("display-name"),
						Type:                   cmd.String("type"),
						ConsentType:            cmd.String("consent-type"),
						Permissions:            cmd.StringSlice("permission"),
						RedirectURIs:           cmd.StringSlice("redirect-uri"),
						PostLogoutRedirectURIs: cmd.StringSlice("post-logout-redirect-uri"),
						Requirements:           cmd.StringSlice("requirement"),
						ManageTokens:           cmd.Bool("manage-tokens"),
					},
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-application-secret",
			Usage: "Generate a new secret for a confidential application",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "client-id",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Client identifier of the application",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				applicationUseCase, err := container.ApplicationUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateApplicationSecret(
					ctx,
					applicationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("client-id"),
					cmd.String("format"),
				)
			},
		},
	}
}

func getTokenCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "revoke-token",
			Usage: "Revoke a single token by id",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Token ID (UUID)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				tokenManagementUseCase, err := container.TokenManagementUseCase()
				if err != nil {
					return err
				}

				return commands.RunRevokeToken(
					ctx,
					tokenManagementUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "revoke-user-tokens",
			Usage: "Revoke every valid token of a subject",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "subject",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "Subject (user id) whose tokens are revoked",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				tokenManagementUseCase, err := container.TokenManagementUseCase()
				if err != nil {
					return err
				}

				return commands.RunRevokeUserTokens(
					ctx,
					tokenManagementUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("subject"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "clean-expired-tokens",
			Usage: "Delete tokens that expired more than the specified days ago",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "days",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Delete tokens expired for longer than this many days",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many tokens would be deleted without deleting",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				tokenUseCase, err := container.TokenUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanExpiredTokens(
					ctx,
					tokenUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
	}
}
