package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/ciphergate/cmd/app/commands"
	"github.com/allisson/ciphergate/internal/app"
	"github.com/allisson/ciphergate/internal/cipher"
	"github.com/allisson/ciphergate/internal/config"
)

func getCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the gateway HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "key-info",
			Usage: "Show the derived transport key fingerprint",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cctx, cfg, cleanup, err := buildCipherContext(ctx)
				if err != nil {
					return err
				}
				defer cleanup()

				return commands.RunKeyInfo(cctx, cfg.CipherKDF, commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
		{
			Name:  "encrypt",
			Usage: "Encrypt stdin to a base64 transport payload on stdout",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cctx, _, cleanup, err := buildCipherContext(ctx)
				if err != nil {
					return err
				}
				defer cleanup()

				io := commands.DefaultIO()
				return commands.RunEncrypt(cctx, io.Reader, io.Writer)
			},
		},
		{
			Name:  "decrypt",
			Usage: "Decrypt a base64 transport payload from stdin to stdout",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cctx, _, cleanup, err := buildCipherContext(ctx)
				if err != nil {
					return err
				}
				defer cleanup()

				io := commands.DefaultIO()
				return commands.RunDecrypt(cctx, io.Reader, io.Writer)
			},
		},
	}
}

// buildCipherContext assembles the cipher context for the key utility
// commands, validating configuration first.
func buildCipherContext(ctx context.Context) (*cipher.Context, *config.Config, func(), error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	container := app.NewContainer(cfg)
	cipherCtx, err := container.CipherContext(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = container.Shutdown(context.Background())
	}
	return cipherCtx, cfg, cleanup, nil
}
