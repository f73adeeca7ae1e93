package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/nexus-agents/nexus/internal/domain"
)

const archiveTitle = "# Archived Communications"

// RenderArchive produces the terse archive view. It is rebuilt from scratch
// on every run; the log, not this artifact, is the durable record.
func RenderArchive(archived []domain.InteractionGroup) string {
	var b strings.Builder
	b.WriteString(archiveTitle + "\n")

	if len(archived) == 0 {
		b.WriteString("\nNo archived interactions.\n")
		return b.String()
	}

	for _, group := range archived {
		b.WriteString(fmt.Sprintf("\n## Interaction %d\n\n", group.ID))
		for _, event := range group.Events {
			actor := event.Actor
			if actor == "" {
				actor = unknownField
			}
			b.WriteString(fmt.Sprintf("- %s %s %s: %s\n",
				actor,
				event.Type,
				event.Timestamp.UTC().Format(time.RFC3339),
				event.Content.String(),
			))
		}
	}

	return b.String()
}
