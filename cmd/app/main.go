// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/habitvault/habitvault/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Encrypted habit tracking backend",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "init-keys",
				Usage: "Generate the data encryption keys and persist the encrypted key registry",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunInitKeys(ctx, commands.DefaultWriter())
				},
			},
			{
				Name:  "rotate-dek",
				Usage: "Rotate a data encryption key in place",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Required: true,
						Usage:    "Key to rotate: user, settings, session or signing",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateDek(ctx, commands.DefaultWriter(), cmd.String("name"))
				},
			},
			{
				Name:  "rotate-signing-key",
				Usage: "Rotate the HMAC signing key (invalidates all sessions and guest users)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateSigningKey(ctx, commands.DefaultWriter())
				},
			},
			{
				Name:  "rotate-kek",
				Usage: "Rotate the root Key Encryption Key (requires a restart)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateKek(ctx, commands.DefaultWriter())
				},
			},
			{
				Name:  "show-config",
				Usage: "Print the effective configuration with secrets redacted",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunShowConfig(commands.DefaultWriter())
				},
			},
			{
				Name:  "create-recovery-key",
				Usage: "Mint a recovery key for an existing user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "OAuth provider of the account (e.g., github)",
					},
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Provider subject id of the account",
					},
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Required: true,
						Usage:    "Account email; recovery requires it to match",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateRecoveryKey(
						ctx,
						commands.DefaultWriter(),
						cmd.String("provider"),
						cmd.String("id"),
						cmd.String("email"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
