package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#9D4EDD")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B2CBF")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("60")).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0AAFF"))

	rowStyle = lipgloss.NewStyle().
			PaddingLeft(1)

	selectedRowStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Bold(true).
				Foreground(lipgloss.Color("#C77DFF"))

	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E84A27")).
			Bold(true)
)

// field renders one "label value" line.
func field(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}
