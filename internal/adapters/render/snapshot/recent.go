// Package snapshot renders the derived views of the event log: the recent
// communication view, the archive view, and the machine-readable snapshot.
// Renderers are pure functions over interaction groups so regeneration stays
// deterministic.
package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nexus-agents/nexus/internal/domain"
)

const (
	recentTitle   = "# Communication Log"
	beginSentinel = "<!-- BEGIN COMMUNICATION -->"
	endSentinel   = "<!-- END COMMUNICATION -->"

	// unknownField stands in for any payload field a producer left out.
	unknownField = "unknown"
)

// typeOrder fixes the order of per-type subsections within an interaction.
// Types not listed render after these, alphabetically.
var typeOrder = []string{
	domain.TypeMessage,
	domain.TypeProposal,
	domain.TypeComment,
	domain.TypeContribution,
	domain.TypeAgentRegistration,
	domain.TypeAgentStatus,
	domain.TypeHeartbeat,
	domain.TypeError,
}

var typeHeadings = map[string]string{
	domain.TypeMessage:           "Messages",
	domain.TypeProposal:          "Proposals",
	domain.TypeComment:           "Comments",
	domain.TypeContribution:      "Contributions",
	domain.TypeAgentRegistration: "Agent Registrations",
	domain.TypeAgentStatus:       "Agent Status",
	domain.TypeHeartbeat:         "Heartbeats",
	domain.TypeError:             "Errors",
}

// RenderRecent produces the human-readable view of the recent interactions,
// bracketed by the communication sentinels.
func RenderRecent(recent []domain.InteractionGroup) string {
	var b strings.Builder
	b.WriteString(recentTitle + "\n\n")
	b.WriteString(beginSentinel + "\n")

	if len(recent) == 0 {
		b.WriteString("\nNo interactions recorded yet.\n")
	}

	for _, group := range recent {
		b.WriteString(fmt.Sprintf("\n## Interaction %d\n", group.ID))
		for _, section := range sectionsByType(group.Events) {
			b.WriteString(fmt.Sprintf("\n### %s\n\n", headingForType(section.eventType)))
			for _, event := range section.events {
				b.WriteString(renderEventLine(event))
			}
		}
	}

	b.WriteString("\n" + endSentinel + "\n")
	return b.String()
}

type typeSection struct {
	eventType string
	events    []domain.Event
}

func sectionsByType(events []domain.Event) []typeSection {
	byType := make(map[string][]domain.Event)
	for _, event := range events {
		byType[event.Type] = append(byType[event.Type], event)
	}

	sections := make([]typeSection, 0, len(byType))
	for _, eventType := range typeOrder {
		if grouped, ok := byType[eventType]; ok {
			sections = append(sections, typeSection{eventType: eventType, events: grouped})
			delete(byType, eventType)
		}
	}

	rest := make([]string, 0, len(byType))
	for eventType := range byType {
		rest = append(rest, eventType)
	}
	sort.Strings(rest)
	for _, eventType := range rest {
		sections = append(sections, typeSection{eventType: eventType, events: byType[eventType]})
	}

	return sections
}

func headingForType(eventType string) string {
	if heading, ok := typeHeadings[eventType]; ok {
		return heading
	}

	return eventType
}

func renderEventLine(event domain.Event) string {
	content := event.Content

	switch event.Type {
	case domain.TypeMessage:
		return fmt.Sprintf("- %s (to %s): %s\n",
			content.FieldOr("from", unknownField),
			content.FieldOr("to", unknownField),
			content.FieldOr("message", unknownField),
		)
	case domain.TypeProposal:
		return fmt.Sprintf("- %s proposed %s: %s\n",
			content.FieldOr("from", unknownField),
			content.FieldOr("component", unknownField),
			content.FieldOr("description", unknownField),
		)
	case domain.TypeComment:
		return fmt.Sprintf("- %s commented on %s's %s: %s\n",
			content.FieldOr("from", unknownField),
			content.FieldOr("target", unknownField),
			content.FieldOr("component", unknownField),
			content.FieldOr("text", unknownField),
		)
	case domain.TypeContribution:
		return fmt.Sprintf("- %s contributed to %s:\n\n```\n%s\n```\n",
			content.FieldOr("from", unknownField),
			content.FieldOr("component", unknownField),
			content.FieldOr("code", unknownField),
		)
	case domain.TypeAgentRegistration:
		return fmt.Sprintf("- agent %s registered (%s, %s)\n",
			content.FieldOr("agent_id", unknownField),
			content.FieldOr("agent_type", unknownField),
			content.FieldOr("capabilities", unknownField),
		)
	case domain.TypeError:
		return fmt.Sprintf("- ERROR from %s: %s\n",
			content.FieldOr("source", unknownField),
			content.FieldOr("message", content.String()),
		)
	default:
		return fmt.Sprintf("- %s\n", content.String())
	}
}
