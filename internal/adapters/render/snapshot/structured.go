package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexus-agents/nexus/internal/domain"
)

type structuredMetadata struct {
	GeneratedAt string `json:"generated_at"`
	EventCount  int    `json:"event_count"`
}

type structuredSnapshot struct {
	Metadata           structuredMetadata `json:"metadata"`
	RecentInteractions []domain.Event     `json:"recent_interactions"`
	AllEvents          []domain.Event     `json:"all_events"`
}

// RenderStructured produces the machine-readable mirror of the log: run
// metadata, every event of the recent interactions, and the complete parsed
// event collection.
func RenderStructured(generatedAt time.Time, recent []domain.InteractionGroup, allEvents []domain.Event) ([]byte, error) {
	recentEvents := make([]domain.Event, 0)
	for _, group := range recent {
		recentEvents = append(recentEvents, group.Events...)
	}
	if allEvents == nil {
		allEvents = []domain.Event{}
	}

	payload := structuredSnapshot{
		Metadata: structuredMetadata{
			GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
			EventCount:  len(allEvents),
		},
		RecentInteractions: recentEvents,
		AllEvents:          allEvents,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode structured snapshot: %w", err)
	}

	return append(data, '\n'), nil
}
