package application

import (
	"context"
	"fmt"
	"time"

	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/nexus-agents/nexus/internal/ports"
)

// EventService is the append side of the system: every message an agent
// wants recorded goes through here.
type EventService struct {
	log   ports.EventLog
	clock ports.Clock
}

func NewEventService(log ports.EventLog, clock ports.Clock) *EventService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &EventService{log: log, clock: clock}
}

// Append validates raw producer content and records one event. An
// interaction of zero requests auto-assignment of the next key. The returned
// event carries the interaction and timestamp as written; on
// domain.ErrLockTimeout the event was diverted to the offline buffer.
func (s *EventService) Append(ctx context.Context, interaction int, actor, eventType, rawContent string) (domain.Event, error) {
	if eventType == "" {
		return domain.Event{}, domain.ErrEmptyType
	}
	if interaction < 0 {
		return domain.Event{}, fmt.Errorf("%w: interaction must not be negative", domain.ErrInvalidContent)
	}

	content, err := domain.ParseContent(rawContent)
	if err != nil {
		return domain.Event{}, err
	}

	return s.AppendContent(ctx, interaction, actor, eventType, content)
}

// AppendText records plain-string content, skipping structured validation.
func (s *EventService) AppendText(ctx context.Context, interaction int, actor, eventType, text string) (domain.Event, error) {
	if eventType == "" {
		return domain.Event{}, domain.ErrEmptyType
	}

	return s.AppendContent(ctx, interaction, actor, eventType, domain.TextContent(text))
}

func (s *EventService) AppendContent(ctx context.Context, interaction int, actor, eventType string, content domain.Content) (domain.Event, error) {
	event := domain.Event{
		Interaction: interaction,
		Actor:       actor,
		Type:        eventType,
		Content:     content,
		Timestamp:   s.clock.Now().UTC().Truncate(time.Second),
	}

	return s.log.Append(ctx, event)
}
