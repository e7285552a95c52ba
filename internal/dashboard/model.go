// Package dashboard implements an optional bubbletea status view for the
// trainer, standing in for the original's stdout status line when an
// operator wants something more legible than scrolling log lines.
package dashboard

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/purecfr/sdk/solver"
)

// StatusMsg carries one solver.Status snapshot into the dashboard's Update
// loop; Trainer.OnStatus is wired to send these via Run.
type StatusMsg solver.Status

// Model is a minimal read-only training dashboard: it renders the latest
// status snapshot and lets an operator stop training early with 'q' or
// ctrl+c. Stopping this way cancels the trainer's context; no final
// checkpoint is written.
type Model struct {
	cancel context.CancelFunc
	prefix string
	spin   spinner.Model

	status   solver.Status
	quitting bool
}

// NewModel builds a dashboard for the given checkpoint prefix. cancel is
// called when the operator requests a shutdown, so the caller should derive
// the trainer's context from the same cancel func.
func NewModel(prefix string, cancel context.CancelFunc) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ValueStyle
	return &Model{prefix: prefix, cancel: cancel, spin: s}
}

func (m *Model) Init() tea.Cmd { return m.spin.Tick }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StatusMsg:
		m.status = solver.Status(msg)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	nextDumpIn := m.status.NextDump - m.status.WorkSeconds
	if nextDumpIn < 0 {
		nextDumpIn = 0
	}

	rows := []string{
		HeaderStyle.Render(fmt.Sprintf(" purecfr %s ", m.prefix)) + " " + m.spin.View(),
		"",
		row("iterations", fmt.Sprintf("%d", m.status.Iterations)),
		row("rate", fmt.Sprintf("%.0f/s", m.status.IterationsPerSecond)),
		row("work seconds", fmt.Sprintf("%d", m.status.WorkSeconds)),
		row("next checkpoint", fmt.Sprintf("%ds", nextDumpIn)),
		"",
		HelpStyle.Render("q to quit (no final checkpoint)"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func row(label, value string) string {
	return fmt.Sprintf("%s %s", LabelStyle.Render(label+":"), ValueStyle.Render(value))
}
