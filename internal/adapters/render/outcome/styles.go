package outcome

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	skipped   lipgloss.Style
	kind      lipgloss.Style
	id        lipgloss.Style
	detail    lipgloss.Style
	warning   lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
	tableHead lipgloss.Style
	tableCell lipgloss.Style
	border    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		success:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		failure:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		skipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		kind:      lipgloss.NewStyle().Foreground(lipgloss.Color("209")),
		id:        lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
		tableHead: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250")).Padding(0, 1),
		tableCell: lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1),
		border:    lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
