package logfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-agents/nexus/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := viper.New()
	cfg.Set("log.path", filepath.Join(t.TempDir(), "events.log"))

	store, err := NewStore(cfg, nil)
	require.NoError(t, err)
	return store
}

func messageEvent(interaction int, actor, text string) domain.Event {
	return domain.Event{
		Interaction: interaction,
		Actor:       actor,
		Type:        domain.TypeMessage,
		Content:     domain.ObjectContent(map[string]any{"from": actor, "to": "all", "message": text}),
		Timestamp:   time.Now().UTC(),
	}
}

func TestAppendWritesExactlyOneParseableLine(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	before := time.Now().UTC()

	written, err := store.Append(context.Background(), messageEvent(1, "agent1", "hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, written.Interaction)

	data, err := os.ReadFile(store.LogPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 1)

	event, err := domain.DecodeLine([]byte(lines[0]))
	require.NoError(t, err)
	assert.Equal(t, domain.TypeMessage, event.Type)
	assert.Equal(t, "agent1", event.Actor)
	assert.Equal(t, "hello", event.Content.FieldOr("message", "unknown"))
	assert.False(t, event.Timestamp.Before(before.Truncate(time.Second)))
	assert.False(t, event.Timestamp.After(time.Now().UTC()))
}

func TestAppendAutoAssignsNextInteraction(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Append(ctx, messageEvent(0, "agent1", "first"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Interaction)

	_, err = store.Append(ctx, messageEvent(9, "agent1", "jump"))
	require.NoError(t, err)

	next, err := store.Append(ctx, messageEvent(0, "agent2", "after jump"))
	require.NoError(t, err)
	assert.Equal(t, 10, next.Interaction)
}

func TestAppendRejectsEmptyType(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Append(context.Background(), domain.Event{
		Interaction: 1,
		Content:     domain.TextContent("x"),
		Timestamp:   time.Now().UTC(),
	})
	require.ErrorIs(t, err, domain.ErrEmptyType)

	_, parseErrs, readErr := store.ReadAll(context.Background())
	require.NoError(t, readErr)
	assert.Empty(t, parseErrs)
}

func TestConcurrentAppendsProduceExactlyOneWellFormedLineEach(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	const writers = 4
	const perWriter = 25

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			actor := fmt.Sprintf("agent%d", w)
			for i := 0; i < perWriter; i++ {
				_, err := store.Append(ctx, messageEvent(w+1, actor, fmt.Sprintf("msg %d", i)))
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	events, parseErrs, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, parseErrs)
	assert.Len(t, events, writers*perWriter)
}

func TestReadAllIsolatesMalformedLines(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, messageEvent(1, "agent1", "good"))
	require.NoError(t, err)

	file, err := os.OpenFile(store.LogPath(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString("{not json at all\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	_, err = store.Append(ctx, messageEvent(2, "agent2", "also good"))
	require.NoError(t, err)

	events, parseErrs, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	require.Len(t, parseErrs, 1)
	assert.Equal(t, 2, parseErrs[0].Line)
	assert.Contains(t, parseErrs[0].Raw, "not json")
}

func TestAppendFallsBackToOfflineBufferWhenLocked(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := viper.New()
	cfg.Set("log.path", filepath.Join(dir, "events.log"))
	cfg.Set("lock.timeout_seconds", 1)
	cfg.Set("lock.attempts", 1)
	cfg.Set("lock.backoff_seconds", 1)

	store, err := NewStore(cfg, nil)
	require.NoError(t, err)

	blocker, err := NewStore(cfg, nil)
	require.NoError(t, err)
	release, err := blocker.lock.Acquire(context.Background(), blocker.lockOpts)
	require.NoError(t, err)

	_, err = store.Append(context.Background(), messageEvent(1, "agent1", "blocked"))
	require.ErrorIs(t, err, domain.ErrLockTimeout)

	buffered, parseErrs, err := readEvents(store.offlinePath)
	require.NoError(t, err)
	assert.Empty(t, parseErrs)
	require.Len(t, buffered, 1)
	assert.Equal(t, "blocked", buffered[0].Content.FieldOr("message", "unknown"))

	// The degraded path records a best-effort diagnostic in the main log.
	logged, _, err := readEvents(store.LogPath())
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, domain.TypeError, logged[0].Type)

	require.NoError(t, release())

	_, err = store.Append(context.Background(), messageEvent(2, "agent2", "unblocked"))
	require.NoError(t, err)

	_, statErr := os.Stat(store.offlinePath)
	assert.True(t, os.IsNotExist(statErr), "offline buffer should be drained")

	events, _, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	// diagnostic + drained buffered event + new event
	assert.Len(t, events, 3)
}
