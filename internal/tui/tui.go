// Package tui is the terminal host: it prompts for the session settings,
// then runs the controller inside a bubbletea program.
package tui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/controller"
)

type Options struct {
	// SavePath is where the save key writes the playlist. Empty picks a
	// timestamped name in the root directory.
	SavePath string
	// Repainter must be the one given to the controller, so backends can
	// wake the program.
	Repainter *Repainter

	Input  io.Reader
	Output io.Writer
}

// Run hosts the committed session of ctrl until it ends.
func Run(ctrl *controller.Controller, opts Options) (Result, error) {
	m := New(ctrl, opts)

	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	p := tea.NewProgram(m, programOpts...)
	m.repaint.attach(p)
	defer m.repaint.attach(nil)

	if _, err := p.Run(); err != nil {
		return ResultQuit, err
	}
	return m.result, m.err
}
