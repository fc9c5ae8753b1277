package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("#a6e3a1")
	colorRed    = lipgloss.Color("#f38ba8")
	colorYellow = lipgloss.Color("#f9e2af")
	colorBlue   = lipgloss.Color("#89b4fa")
	colorMuted  = lipgloss.Color("#6c7086")
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle    = lipgloss.NewStyle().Foreground(colorRed)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	summaryStyle = lipgloss.NewStyle().Bold(true)
)

// stateStyle colors an item state for listings.
func stateStyle(st string) lipgloss.Style {
	switch st {
	case "done":
		return okStyle
	case "raw":
		return mutedStyle
	}
	return warnStyle
}
