package agents

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	agent    lipgloss.Style
	detail   lipgloss.Style
	active   lipgloss.Style
	idle     lipgloss.Style
	stale    lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	meta     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		agent:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("179")),
		stale:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
		meta:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
