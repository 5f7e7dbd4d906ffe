// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the status view
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// New creates the status program. onStop is called when the user quits.
func New(onStop func(), opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return tea.NewProgram(NewModel(onStop), opts...)
}
