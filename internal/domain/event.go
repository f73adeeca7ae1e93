package domain

import (
	"encoding/json"
	"time"
)

// Well-known event types. Any other value is accepted and rendered through
// the generic fallback.
const (
	TypeMessage           = "message"
	TypeProposal          = "proposal"
	TypeComment           = "comment"
	TypeContribution      = "contribution"
	TypeError             = "error"
	TypeAgentRegistration = "agent_registration"
	TypeAgentStatus       = "agent_status"
	TypeHeartbeat         = "heartbeat"
)

// Event is one immutable record of the append-only log. The JSON encoding of
// an Event is the wire contract of the log file: one event per line,
// independently parseable.
type Event struct {
	Interaction int       `json:"interaction"`
	Actor       string    `json:"actor,omitempty"`
	Type        string    `json:"type"`
	Content     Content   `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// EncodeLine serializes the event as a single log line without the trailing
// newline.
func (e Event) EncodeLine() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeLine parses one log line into an Event.
func DecodeLine(line []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(line, &event); err != nil {
		return Event{}, err
	}
	if event.Type == "" {
		return Event{}, ErrEmptyType
	}

	return event, nil
}
