package agents

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-agents/nexus/internal/domain"
)

type RenderOptions struct {
	Now        time.Time
	StaleAfter time.Duration
}

// Render produces the terminal view of registered agents with a staleness
// marker derived from each agent's last heartbeat.
func Render(agents []domain.Agent, opts RenderOptions) string {
	return renderView(agents, opts, newStyles())
}

func renderView(agents []domain.Agent, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Registered Agents"),
		s.header.Render(fmt.Sprintf("agents: %d", len(agents))),
	}

	if len(agents) == 0 {
		lines = append(lines, s.empty.Render("No agents registered."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, agent := range agents {
		lines = append(lines, s.section.Render(renderAgent(agent, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAgent(agent domain.Agent, opts RenderOptions, s styles) string {
	parts := []string{
		s.agent.Render(fmt.Sprintf("%s (%s)", agent.ID, agent.Type)),
	}

	stateLine := fmt.Sprintf("state: %s", stateLabel(agent, opts))
	parts = append(parts, stateStyle(agent, opts, s).Render(stateLine))

	if agent.Detail != "" {
		parts = append(parts, s.detail.Render(agent.Detail))
	}
	if !agent.LastSeen.IsZero() {
		parts = append(parts, s.meta.Render(fmt.Sprintf("last seen %s", agent.LastSeen.UTC().Format(time.RFC3339))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func stateLabel(agent domain.Agent, opts RenderOptions) string {
	if isStale(agent, opts) {
		return fmt.Sprintf("%s (stale)", agent.State)
	}

	return string(agent.State)
}

func stateStyle(agent domain.Agent, opts RenderOptions, s styles) lipgloss.Style {
	if isStale(agent, opts) {
		return s.stale
	}

	switch agent.State {
	case domain.AgentStateActive:
		return s.active
	case domain.AgentStateIdle:
		return s.idle
	default:
		return s.detail
	}
}

func isStale(agent domain.Agent, opts RenderOptions) bool {
	if opts.StaleAfter <= 0 || agent.LastSeen.IsZero() || opts.Now.IsZero() {
		return false
	}

	return opts.Now.Sub(agent.LastSeen) > opts.StaleAfter
}
