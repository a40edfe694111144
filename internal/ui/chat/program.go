// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Program runs the chat view full screen.
type Program struct {
	program *tea.Program
}

// NewProgram creates the program. It does not touch the terminal until Run.
func NewProgram(opts Options) *Program {
	return &Program{
		program: tea.NewProgram(New(opts), tea.WithAltScreen()),
	}
}

// Send delivers msg to the running program. It is safe to call from any
// goroutine, and a no-op once the program has exited.
func (p *Program) Send(msg tea.Msg) {
	p.program.Send(msg)
}

// Run blocks until the user quits.
func (p *Program) Run() error {
	final, err := p.program.Run()
	if m, ok := final.(Model); ok {
		m.cancelMgr.cancel()
	}
	return err
}
