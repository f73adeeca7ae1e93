package application

import (
	"context"
	"sync"
	"time"

	"github.com/nexus-agents/nexus/internal/domain"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// memoryLog is an in-memory ports.EventLog for exercising services without
// touching the filesystem.
type memoryLog struct {
	mu        sync.Mutex
	events    []domain.Event
	parseErrs []domain.ParseError
	readErr   error
	appendErr error
}

func (m *memoryLog) Append(_ context.Context, event domain.Event) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendErr != nil {
		return domain.Event{}, m.appendErr
	}
	if event.Interaction == 0 {
		event.Interaction = domain.NextInteractionID(m.events)
	}
	m.events = append(m.events, event)

	return event, nil
}

func (m *memoryLog) ReadAll(context.Context) ([]domain.Event, []domain.ParseError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readErr != nil {
		return nil, nil, m.readErr
	}

	events := make([]domain.Event, len(m.events))
	copy(events, m.events)

	return events, m.parseErrs, nil
}
