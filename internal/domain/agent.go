package domain

import (
	"fmt"
	"time"
)

type AgentID string

type AgentState string

const (
	AgentStateActive   AgentState = "active"
	AgentStateIdle     AgentState = "idle"
	AgentStateInactive AgentState = "inactive"
)

func ParseAgentState(raw string) (AgentState, error) {
	switch state := AgentState(raw); state {
	case AgentStateActive, AgentStateIdle, AgentStateInactive:
		return state, nil
	default:
		return "", fmt.Errorf("unknown agent state %q", raw)
	}
}

// Agent is one registered participant in the shared log. The registry is
// bookkeeping on top of the event store; the log itself remains the record
// of what agents actually did.
type Agent struct {
	ID           AgentID
	SessionID    string
	Type         string
	Description  string
	State        AgentState
	Detail       string
	RegisteredAt time.Time
	LastSeen     time.Time
}
