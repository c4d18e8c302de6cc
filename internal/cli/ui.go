package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorBlue  = lipgloss.Color("75")
	colorRed   = lipgloss.Color("167")
	colorDim   = lipgloss.Color("240")
)

var (
	styleStatus      = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	styleStatusError = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleHeaderName  = lipgloss.NewStyle().Foreground(colorGreen)
	styleJSON        = lipgloss.NewStyle().Foreground(colorCyan)
	styleIndex       = lipgloss.NewStyle().Foreground(colorDim)
	styleOperation   = lipgloss.NewStyle().Foreground(colorCyan)
)
