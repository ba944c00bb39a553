// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the player UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// NewModel creates a new TUI model
func NewModel(player Controller, name string) Model {
	m := Model{
		player: player,
		name:   name,
	}
	if player != nil {
		m.status = player.Status()
	}
	return m
}

// New creates the TUI program. Feed it StatusMsg and RemoteMsg with Send,
// then call Run.
func New(player Controller, name string, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return tea.NewProgram(NewModel(player, name), opts...)
}
