package snapshot

import (
	"time"

	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/nexus-agents/nexus/internal/ports"
)

// Renderer adapts the package-level render functions to the
// ports.SnapshotRenderer interface.
type Renderer struct{}

var _ ports.SnapshotRenderer = Renderer{}

func (Renderer) RenderRecent(recent []domain.InteractionGroup) string {
	return RenderRecent(recent)
}

func (Renderer) RenderArchive(archived []domain.InteractionGroup) string {
	return RenderArchive(archived)
}

func (Renderer) RenderStructured(generatedAt time.Time, recent []domain.InteractionGroup, allEvents []domain.Event) ([]byte, error) {
	return RenderStructured(generatedAt, recent, allEvents)
}
