package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Border styles
var (
	StyleOutputBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))
)

// Status styles
var (
	StyleStatus = lipgloss.NewStyle().
			Bold(true)

	StyleProgress = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))

	StyleSpinner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62"))
)

// UI element styles
var (
	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
