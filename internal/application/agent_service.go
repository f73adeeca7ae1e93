package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/nexus-agents/nexus/internal/ports"
)

// AgentService tracks participant status. It is a client of the event store:
// registration and status changes also land in the log so other agents see
// them in the rendered views.
type AgentService struct {
	registry     ports.AgentRegistry
	events       *EventService
	clock        ports.Clock
	newSessionID func() string
}

func NewAgentService(registry ports.AgentRegistry, events *EventService, clock ports.Clock) *AgentService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &AgentService{
		registry:     registry,
		events:       events,
		clock:        clock,
		newSessionID: uuid.NewString,
	}
}

// Register creates or refreshes an agent record and announces the agent in
// the event log. Re-registering an existing agent keeps its original
// registration time but starts a fresh session.
func (s *AgentService) Register(ctx context.Context, id domain.AgentID, agentType, description string) (domain.Agent, error) {
	if id == "" {
		return domain.Agent{}, fmt.Errorf("agent id must not be empty")
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	agent, err := s.registry.Update(ctx, id, func(current domain.Agent) (domain.Agent, error) {
		current.SessionID = s.newSessionID()
		current.Type = agentType
		current.Description = description
		current.State = domain.AgentStateActive
		current.Detail = ""
		current.LastSeen = now
		if current.RegisteredAt.IsZero() {
			current.RegisteredAt = now
		}
		return current, nil
	})
	if err != nil {
		return domain.Agent{}, fmt.Errorf("register agent: %w", err)
	}

	_, err = s.events.AppendContent(ctx, 0, string(id), domain.TypeAgentRegistration, domain.ObjectContent(map[string]any{
		"agent_id":     string(id),
		"agent_type":   agentType,
		"capabilities": description,
	}))
	if err != nil {
		return agent, fmt.Errorf("announce registration: %w", err)
	}

	return agent, nil
}

// SetStatus updates a registered agent's state and records an agent_status
// event.
func (s *AgentService) SetStatus(ctx context.Context, id domain.AgentID, state domain.AgentState, detail string) (domain.Agent, error) {
	if _, err := s.registry.GetByID(ctx, id); err != nil {
		return domain.Agent{}, err
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	agent, err := s.registry.Update(ctx, id, func(current domain.Agent) (domain.Agent, error) {
		current.State = state
		current.Detail = detail
		current.LastSeen = now
		return current, nil
	})
	if err != nil {
		return domain.Agent{}, fmt.Errorf("update agent status: %w", err)
	}

	_, err = s.events.AppendContent(ctx, 0, string(id), domain.TypeAgentStatus, domain.ObjectContent(map[string]any{
		"agent_id": string(id),
		"state":    string(state),
		"detail":   detail,
	}))
	if err != nil {
		return agent, fmt.Errorf("announce status: %w", err)
	}

	return agent, nil
}

// Heartbeat bumps the agent's last-seen time and records a heartbeat event.
func (s *AgentService) Heartbeat(ctx context.Context, id domain.AgentID) (domain.Agent, error) {
	current, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return domain.Agent{}, err
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	agent, err := s.registry.Update(ctx, id, func(current domain.Agent) (domain.Agent, error) {
		current.LastSeen = now
		return current, nil
	})
	if err != nil {
		return domain.Agent{}, fmt.Errorf("record heartbeat: %w", err)
	}

	_, err = s.events.AppendContent(ctx, 0, string(id), domain.TypeHeartbeat, domain.ObjectContent(map[string]any{
		"agent_id": string(id),
		"state":    string(current.State),
	}))
	if err != nil {
		return agent, fmt.Errorf("announce heartbeat: %w", err)
	}

	return agent, nil
}

// List returns all registered agents ordered by id.
func (s *AgentService) List(ctx context.Context) ([]domain.Agent, error) {
	agents, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })

	return agents, nil
}
