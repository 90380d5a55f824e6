package tui

import "github.com/charmbracelet/lipgloss"

var (
	green  = lipgloss.Color("#5FD787")
	yellow = lipgloss.Color("#FFD787")
	red    = lipgloss.Color("#FF8787")
	gray   = lipgloss.Color("#888888")
	white  = lipgloss.Color("#E2E2E2")
	blue   = lipgloss.Color("#5FAFFF")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(white)

	labelStyle = lipgloss.NewStyle().Foreground(gray).Bold(true).Width(20)

	valueStyle = lipgloss.NewStyle().Foreground(white)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1)

	infoText    = lipgloss.NewStyle().Foreground(yellow)
	errorText   = lipgloss.NewStyle().Foreground(red).Bold(true)
	successText = lipgloss.NewStyle().Foreground(green).Bold(true)
)
