package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/nhle/companytinder/internal/api"
	"github.com/nhle/companytinder/internal/credential"
	"github.com/nhle/companytinder/internal/gmail"
	"github.com/nhle/companytinder/internal/logging"
	"github.com/nhle/companytinder/internal/mailer"
	"github.com/nhle/companytinder/internal/model"
	"github.com/nhle/companytinder/internal/store"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg       *model.AppConfig
	logger    *slog.Logger
	secrets   *credential.Keyring
	store     *store.SQLiteStore
	connector *gmail.Connector
	guard     *mailer.Guard
	handler   *api.Handler

	out    io.Writer
	asJSON bool
}

func openApp(cmd *cli.Command) (*app, error) {
	cfg, err := model.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	secrets, err := credential.Open(cfg.Keyring)
	if err != nil {
		return nil, err
	}

	db, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	connector := gmail.NewConnector(secrets, gmail.OptionsFromConfig(*cfg, logger))
	guard := mailer.NewGuard(db, db, nil)
	sender := mailer.NewSender(db, guard, connector, logger, nil)

	return &app{
		cfg:       cfg,
		logger:    logger,
		secrets:   secrets,
		store:     db,
		connector: connector,
		guard:     guard,
		handler:   api.NewHandler(connector, sender, guard, logger),
		out:       os.Stdout,
		asJSON:    cmd.Bool("json") || !isTerminal(os.Stdout),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp wraps a command action with app setup and teardown.
func withApp(fn func(ctx context.Context, cmd *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				a.logger.Warn("closing store", "error", err)
			}
		}()
		return fn(ctx, cmd, a)
	}
}

// print writes v as JSON or the styled rendering.
func (a *app) print(v any, rendered string) error {
	if a.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(a.out, rendered)
	return err
}

// failed turns a result error into a non-zero exit after it was printed.
func failed(msg string) error {
	if msg == "" {
		return nil
	}
	return cli.Exit("", 1)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
