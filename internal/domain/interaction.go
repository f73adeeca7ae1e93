package domain

import "sort"

// InteractionGroup is the set of events sharing one interaction key. Groups
// are derived from the log on every snapshot run, never stored.
type InteractionGroup struct {
	ID     int
	Events []Event
}

// GroupByInteraction buckets events by interaction key, ascending by key.
// Events within a group keep log order.
func GroupByInteraction(events []Event) []InteractionGroup {
	byID := make(map[int][]Event)
	for _, event := range events {
		byID[event.Interaction] = append(byID[event.Interaction], event)
	}

	groups := make([]InteractionGroup, 0, len(byID))
	for id, grouped := range byID {
		groups = append(groups, InteractionGroup{ID: id, Events: grouped})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })

	return groups
}

// Partition splits interaction groups into recent and archived sets. The
// highest min(len(groups), window) keys are recent; everything below is
// archived. Interaction keys are the only ordering authority.
func Partition(groups []InteractionGroup, window int) (recent, archived []InteractionGroup) {
	if window < 0 {
		window = 0
	}
	if len(groups) <= window {
		return groups, nil
	}

	cut := len(groups) - window
	return groups[cut:], groups[:cut]
}

// NextInteractionID computes the auto-assigned interaction key for a new
// event: one past the highest key present, or 1 for an empty log. Callers
// must invoke this inside the same critical section as the append that
// consumes it.
func NextInteractionID(events []Event) int {
	next := 1
	for _, event := range events {
		if event.Interaction >= next {
			next = event.Interaction + 1
		}
	}

	return next
}
