package dashboard

import "github.com/charmbracelet/lipgloss"

// Styles for the trainer status view. ANSI-256 codes rather than truecolor
// hex so the dashboard degrades sanely on the plain terminals long training
// runs tend to live in.
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("24")).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)
