package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/companytinder/internal/gmail"
	"github.com/nhle/companytinder/internal/model"
)

const formWidth = 72

// RunSetupForm prompts for the OAuth client credentials, prefilled from
// cred. The secret is never echoed.
func RunSetupForm(cred *gmail.ClientCredential) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Client ID").
				Description("OAuth client id of your Google Cloud desktop app").
				Placeholder("1234-abc.apps.googleusercontent.com").
				Value(&cred.ClientID).
				Validate(validateRequired("Client ID")),
			huh.NewInput().
				Title("Client secret").
				EchoMode(huh.EchoModePassword).
				Value(&cred.ClientSecret).
				Validate(validateRequired("Client secret")),
		),
	).WithWidth(formWidth).Run()
}

// RunSettingsForm edits s in place.
func RunSettingsForm(s *model.Settings) error {
	capText := strconv.Itoa(s.DailyCap)

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sender name").
				Description("Display name in the From header").
				Value(&s.SenderName),
			huh.NewInput().
				Title("Sender email").
				Description("Gmail address messages are sent from").
				Placeholder("you@gmail.com").
				Value(&s.SenderEmail).
				Validate(validateSenderEmail),
			huh.NewInput().
				Title("BCC").
				Description("Comma separated, added to every send").
				Value(&s.BCCList).
				Validate(validateBCC),
			huh.NewInput().
				Title("Daily cap").
				Description("Messages allowed per calendar day").
				Value(&capText).
				Validate(validateCap),
		),
	).WithWidth(formWidth).Run()
	if err != nil {
		return err
	}

	s.DailyCap, _ = strconv.Atoi(strings.TrimSpace(capText))
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateSenderEmail(s string) error {
	if err := validateRequired("Sender email")(s); err != nil {
		return err
	}
	probe := model.DefaultSettings()
	probe.SenderEmail = strings.TrimSpace(s)
	if probe.Validate() != nil {
		return fmt.Errorf("%q is not an email address", s)
	}
	return nil
}

func validateBCC(s string) error {
	probe := model.DefaultSettings()
	probe.BCCList = s
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("BCC must be a list of email addresses")
	}
	return nil
}

func validateCap(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("daily cap must be a whole number, 0 or more")
	}
	return nil
}
