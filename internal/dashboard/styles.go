package dashboard

import (
	"github.com/charmbracelet/lipgloss"
)

// Title bars: white bold text on the status color
var (
	StyleTitleNeutral = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("4")).
				Bold(true).
				Padding(0, 1)

	StyleTitlePass = StyleTitleNeutral.
			Background(lipgloss.Color("2"))

	StyleTitleFail = StyleTitleNeutral.
			Background(lipgloss.Color("1"))
)

var (
	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	StyleSection = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Underline(true)

	StyleRunning = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))
)

func titleStyle(c TitleColor) lipgloss.Style {
	switch c {
	case TitlePass:
		return StyleTitlePass
	case TitleFail:
		return StyleTitleFail
	default:
		return StyleTitleNeutral
	}
}
