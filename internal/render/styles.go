package render

import "github.com/charmbracelet/lipgloss"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	loss      = lipgloss.AdaptiveColor{Light: "#E0475B", Dark: "#FF6B81"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(0, 1).
			Width(30)

	assetStyle = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	labelStyle = lipgloss.NewStyle().Foreground(subtle)
	gainStyle  = lipgloss.NewStyle().Foreground(special)
	lossStyle  = lipgloss.NewStyle().Foreground(loss)
	mutedStyle = lipgloss.NewStyle().Foreground(subtle).Italic(true)
	okStyle    = lipgloss.NewStyle().Foreground(special)
)

func pnlStyle(v float64) lipgloss.Style {
	if v < 0 {
		return lossStyle
	}
	return gainStyle
}

// Title renders a section header.
func Title(s string) string {
	return titleStyle.Render(s)
}

// Success renders a confirmation line.
func Success(s string) string {
	return okStyle.Render("✓ " + s)
}

// Muted renders secondary text.
func Muted(s string) string {
	return mutedStyle.Render(s)
}
