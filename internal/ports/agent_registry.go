package ports

import (
	"context"

	"github.com/nexus-agents/nexus/internal/domain"
)

// AgentRegistry stores per-agent status records. Update applies fn to the
// current record for id (zero-valued when absent) and persists the result in
// one compare-and-swap step, so concurrent updaters never clobber each other
// through read-modify-write races.
type AgentRegistry interface {
	GetByID(ctx context.Context, id domain.AgentID) (domain.Agent, error)
	List(ctx context.Context) ([]domain.Agent, error)
	Update(ctx context.Context, id domain.AgentID, fn func(domain.Agent) (domain.Agent, error)) (domain.Agent, error)
}
