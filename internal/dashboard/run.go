package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/purecfr/sdk/solver"
)

// Run starts the dashboard program, wiring trainer's status callback to feed
// it, and blocks until the program exits: either the operator quits (which
// cancels ctx) or ctx is cancelled by someone else (a signal, max-walltime).
func Run(ctx context.Context, prefix string, cancel context.CancelFunc, trainer *solver.Trainer) error {
	m := NewModel(prefix, cancel)
	p := tea.NewProgram(m)

	trainer.OnStatus = func(s solver.Status) {
		p.Send(StatusMsg(s))
	}

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
