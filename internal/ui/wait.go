package ui

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/companytinder/internal/keys"
	"github.com/nhle/companytinder/internal/theme"
)

// waitDoneMsg ends the spinner once the background work returns.
type waitDoneMsg struct{}

// waitModel shows a spinner with a title until told to stop. The cancel
// binding marks the wait cancelled.
type waitModel struct {
	spinner   spinner.Model
	keys      *keys.KeyMap
	title     string
	done      bool
	cancelled bool
}

func newWaitModel(title string) waitModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.OKStyle

	return waitModel{spinner: sp, keys: keys.DefaultKeyMap(), title: title}
}

func (m waitModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case waitDoneMsg:
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Cancel) {
			m.cancelled = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m waitModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	h := m.keys.Cancel.Help()
	hint := theme.HelpStyle.Render("(" + h.Key + " to " + h.Desc + ")")
	return m.spinner.View() + " " + m.title + " " + hint + "\n"
}

// Wait runs fn while a spinner is shown on out. Cancelling from the
// keyboard cancels the context given to fn; Wait still returns fn's result.
func Wait[T any](ctx context.Context, out io.Writer, title string, fn func(context.Context) T) T {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newWaitModel(title), tea.WithOutput(out), tea.WithContext(ctx))

	results := make(chan T, 1)
	go func() {
		results <- fn(ctx)
		p.Send(waitDoneMsg{})
	}()

	final, err := p.Run()
	if m, ok := final.(waitModel); err != nil || (ok && m.cancelled) {
		cancel()
	}
	return <-results
}
