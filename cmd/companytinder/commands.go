package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/nhle/companytinder/internal/api"
	"github.com/nhle/companytinder/internal/gmail"
	"github.com/nhle/companytinder/internal/mailer"
	"github.com/nhle/companytinder/internal/model"
	"github.com/nhle/companytinder/internal/ui"
)

var setupCommand = &cli.Command{
	Name:  "setup",
	Usage: "Save the Gmail OAuth client id and secret",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "client-id", Usage: "OAuth client id"},
		&cli.StringFlag{
			Name:    "client-secret",
			Usage:   "OAuth client secret (prompted without echo when omitted)",
			Sources: cli.EnvVars("COMPANYTINDER_CLIENT_SECRET"),
		},
	},
	Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
		cred := gmail.ClientCredential{
			ClientID:     cmd.String("client-id"),
			ClientSecret: cmd.String("client-secret"),
		}
		if cred.ClientID == "" || cred.ClientSecret == "" {
			if !isTerminal(os.Stdin) {
				return errors.New("--client-id and --client-secret are required without a terminal")
			}
			if err := ui.RunSetupForm(&cred); err != nil {
				return err
			}
		}

		if err := gmail.SaveClientCredential(a.secrets, cred); err != nil {
			return err
		}
		a.logger.Info("saved gmail client credentials")
		return a.print(map[string]bool{"ok": true}, "Client credentials saved. Run `companytinder connect` next.")
	}),
}

var settingsCommand = &cli.Command{
	Name:  "settings",
	Usage: "Show or change sender settings",
	Commands: []*cli.Command{
		{
			Name:  "show",
			Usage: "Print the stored settings",
			Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
				s, err := a.store.GetSettings(ctx)
				if err != nil {
					return err
				}
				return a.print(s, ui.RenderSettings(s))
			}),
		},
		{
			Name:  "set",
			Usage: "Update settings from flags, or interactively when none are given",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "sender-name", Usage: "display name in the From header"},
				&cli.StringFlag{Name: "sender-email", Usage: "address messages are sent from"},
				&cli.StringFlag{Name: "bcc", Usage: "comma separated addresses blind-copied on every send"},
				&cli.IntFlag{Name: "daily-cap", Usage: "messages allowed per calendar day"},
			},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
				s, err := a.store.GetSettings(ctx)
				if err != nil {
					return err
				}

				changed := false
				if cmd.IsSet("sender-name") {
					s.SenderName, changed = strings.TrimSpace(cmd.String("sender-name")), true
				}
				if cmd.IsSet("sender-email") {
					s.SenderEmail, changed = strings.TrimSpace(cmd.String("sender-email")), true
				}
				if cmd.IsSet("bcc") {
					s.BCCList, changed = strings.TrimSpace(cmd.String("bcc")), true
				}
				if cmd.IsSet("daily-cap") {
					s.DailyCap, changed = cmd.Int("daily-cap"), true
				}

				if !changed {
					if !isTerminal(os.Stdin) {
						return errors.New("no settings flags given")
					}
					if err := ui.RunSettingsForm(&s); err != nil {
						return err
					}
				}

				if err := a.store.UpdateSettings(ctx, s); err != nil {
					return err
				}
				a.logger.Info("settings saved", "sender_email", s.SenderEmail, "daily_cap", s.DailyCap)
				return a.print(s, ui.RenderSettings(s))
			}),
		},
	},
}

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Show whether a Gmail account is connected",
	Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
		r := a.handler.Status(ctx)
		if err := a.print(r, ui.RenderStatus(r)); err != nil {
			return err
		}
		return failed(r.Error)
	}),
}

var connectCommand = &cli.Command{
	Name:  "connect",
	Usage: "Authorize Gmail access in the browser",
	Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
		var r api.ConnectResult
		if a.asJSON || !isTerminal(os.Stderr) {
			r = a.handler.Connect(ctx)
		} else {
			r = ui.Wait(ctx, os.Stderr, "Waiting for Gmail consent in your browser", a.handler.Connect)
		}
		if err := a.print(r, ui.RenderConnect(r)); err != nil {
			return err
		}
		return failed(r.Error)
	}),
}

var disconnectCommand = &cli.Command{
	Name:  "disconnect",
	Usage: "Forget the stored Gmail token",
	Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
		r := a.handler.Disconnect()
		if err := a.print(r, ui.RenderDisconnect(r)); err != nil {
			return err
		}
		return failed(r.Error)
	}),
}

var sendCommand = &cli.Command{
	Name:  "send",
	Usage: "Send one email within today's cap",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "to", Usage: "recipient address list", Required: true},
		&cli.StringFlag{Name: "subject", Usage: "subject line", Required: true},
		&cli.StringFlag{Name: "text", Usage: "plain-text body"},
		&cli.StringFlag{Name: "text-file", Usage: "read the plain-text body from a file"},
		&cli.StringFlag{Name: "html", Usage: "HTML body; sent as multipart/alternative"},
		&cli.StringFlag{Name: "bcc", Usage: "BCC list overriding the settings"},
	},
	Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
		text := cmd.String("text")
		if path := cmd.String("text-file"); path != "" {
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading body: %w", err)
			}
			text = string(b)
		}

		r := a.handler.Send(ctx, mailer.Request{
			To:      cmd.String("to"),
			Subject: cmd.String("subject"),
			Text:    text,
			HTML:    cmd.String("html"),
			BCC:     cmd.String("bcc"),
		})
		if err := a.print(r, ui.RenderSend(r)); err != nil {
			return err
		}
		return failed(r.Error)
	}),
}

var quotaCommand = &cli.Command{
	Name:  "quota",
	Usage: "Show today's send usage",
	Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
		r := a.handler.Quota(ctx)
		if err := a.print(r, ui.RenderQuota(r)); err != nil {
			return err
		}
		return failed(r.Error)
	}),
}

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "List recorded sends",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "days", Usage: "calendar days to include, today counts as one", Value: 1},
	},
	Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
		days := max(1, cmd.Int("days"))
		since := model.StartOfDay(time.Now()).AddDate(0, 0, -(days - 1))

		recs, err := a.store.ListSendsSince(ctx, since)
		if err != nil {
			return err
		}
		if recs == nil {
			recs = []model.SendRecord{}
		}
		return a.print(recs, ui.RenderHistory(recs, since))
	}),
}

var configCommand = &cli.Command{
	Name:  "config",
	Usage: "Inspect or create the config file",
	Commands: []*cli.Command{
		{
			Name:  "path",
			Usage: "Print the config file path in use",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fmt.Println(cmd.String("config"))
				return nil
			},
		},
		{
			Name:  "init",
			Usage: "Write the effective configuration to the config file",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				path := cmd.String("config")
				if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
					return fmt.Errorf("%s already exists, use --force to overwrite", path)
				}
				cfg, err := model.LoadConfig(path)
				if err != nil {
					return err
				}
				if err := model.SaveConfig(path, cfg); err != nil {
					return err
				}
				fmt.Println("wrote", path)
				return nil
			},
		},
	},
}
