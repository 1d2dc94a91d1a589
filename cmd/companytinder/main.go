package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/nhle/companytinder/internal/model"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "companytinder",
		Usage: "Send capped outreach email through your Gmail account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the YAML config file",
				Value:   model.DefaultConfigPath(),
				Sources: cli.EnvVars("COMPANYTINDER_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print results as JSON (default when stdout is not a terminal)",
			},
		},
		Commands: []*cli.Command{
			setupCommand,
			settingsCommand,
			statusCommand,
			connectCommand,
			disconnectCommand,
			sendCommand,
			quotaCommand,
			historyCommand,
			configCommand,
		},
	}
}
