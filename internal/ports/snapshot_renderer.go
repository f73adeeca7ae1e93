package ports

import (
	"time"

	"github.com/nexus-agents/nexus/internal/domain"
)

// SnapshotRenderer turns partitioned interaction groups into the three
// derived artifacts. Implementations must be deterministic: identical input
// yields byte-identical output.
type SnapshotRenderer interface {
	RenderRecent(recent []domain.InteractionGroup) string
	RenderArchive(archived []domain.InteractionGroup) string
	RenderStructured(generatedAt time.Time, recent []domain.InteractionGroup, allEvents []domain.Event) ([]byte, error)
}
