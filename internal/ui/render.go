// Package ui renders operation results for the terminal and hosts the
// interactive forms and progress views of the command line front end.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/companytinder/internal/api"
	"github.com/nhle/companytinder/internal/model"
	"github.com/nhle/companytinder/internal/theme"
)

const barWidth = 30

func panel(title string, rows ...string) string {
	lines := append([]string{theme.HeaderStyle.Render(title)}, rows...)
	return theme.PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func row(label, value string) string {
	return theme.LabelStyle.Render(label) + value
}

func failure(msg string) string {
	return theme.ErrorStyle.Render("✗ " + msg)
}

// RenderStatus renders a status result.
func RenderStatus(r api.StatusResult) string {
	switch {
	case r.Error != "":
		return panel("Gmail", failure(r.Error))
	case !r.Connected:
		return panel("Gmail",
			theme.HelpStyle.Render("Not connected. Run `companytinder connect`."))
	default:
		return panel("Gmail",
			theme.OKStyle.Render("✓ connected"),
			row("Account", r.Email))
	}
}

// RenderConnect renders a connect result.
func RenderConnect(r api.ConnectResult) string {
	if !r.OK {
		return panel("Connect Gmail", failure(r.Error))
	}
	return panel("Connect Gmail",
		theme.OKStyle.Render("✓ connected"),
		row("Account", r.Email))
}

// RenderDisconnect renders a disconnect result.
func RenderDisconnect(r api.DisconnectResult) string {
	if !r.OK {
		return panel("Disconnect Gmail", failure(r.Error))
	}
	return panel("Disconnect Gmail", theme.OKStyle.Render("✓ token removed"))
}

// RenderSend renders a send result with the remaining allowance.
func RenderSend(r api.SendResult) string {
	if !r.OK {
		return panel("Send", failure(r.Error))
	}
	return panel("Send",
		theme.OKStyle.Render("✓ sent"),
		row("Message", r.ID),
		row("Remaining", theme.QuotaStyle(r.Remaining, r.Cap).Render(
			fmt.Sprintf("%d of %d today", r.Remaining, r.Cap))))
}

// RenderQuota renders today's usage as a bar.
func RenderQuota(r api.QuotaResult) string {
	if r.Error != "" {
		return panel("Daily quota", failure(r.Error))
	}
	return panel("Daily quota",
		quotaBar(r.Used, r.Cap),
		row("Used", fmt.Sprintf("%d / %d", r.Used, r.Cap)),
		row("Remaining", theme.QuotaStyle(r.Remaining, r.Cap).Render(fmt.Sprint(r.Remaining))))
}

func quotaBar(used, cap int) string {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	ratio := 1.0
	if cap > 0 {
		ratio = min(1, float64(used)/float64(cap))
	}
	return bar.ViewAs(ratio)
}

// RenderSettings renders the stored settings.
func RenderSettings(s model.Settings) string {
	return panel("Settings",
		row("Name", orDash(s.SenderName)),
		row("Email", orDash(s.SenderEmail)),
		row("BCC", orDash(s.BCCList)),
		row("Daily cap", fmt.Sprint(s.DailyCap)))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return theme.HelpStyle.Render("-")
	}
	return s
}

// RenderHistory lists send records since the given time, newest last.
func RenderHistory(recs []model.SendRecord, since time.Time) string {
	title := "Sends since " + since.Format("Mon Jan 2")
	if len(recs) == 0 {
		return panel(title, theme.HelpStyle.Render("Nothing sent."))
	}

	rows := make([]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, row(r.Time().Local().Format("Jan 2 15:04"), r.ID))
	}
	return panel(title, rows...)
}
