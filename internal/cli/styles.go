package cli

import "github.com/charmbracelet/lipgloss"

// Styling mirrors the corpus convention of small package-level lipgloss
// styles rendered directly into fmt.Print* calls, rather than routing
// ordinary (non-progress) CLI output through a bubbletea program.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
)
