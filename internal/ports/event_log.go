package ports

import (
	"context"

	"github.com/nexus-agents/nexus/internal/domain"
)

// EventLog is the append-only event store. Append stamps the timestamp and,
// for a zero interaction key, assigns the next key inside its critical
// section, returning the event as written. ReadAll returns every parseable
// event in log order plus one ParseError per malformed line; the error
// return is reserved for a fundamentally unreadable log.
type EventLog interface {
	Append(ctx context.Context, event domain.Event) (domain.Event, error)
	ReadAll(ctx context.Context) ([]domain.Event, []domain.ParseError, error)
}
