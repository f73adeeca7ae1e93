package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rendersnapshot "github.com/nexus-agents/nexus/internal/adapters/render/snapshot"
	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/nexus-agents/nexus/internal/ports"
)

func newSnapshotFixture(t *testing.T, log *memoryLog) (*SnapshotService, SnapshotConfig) {
	t.Helper()

	svc, cfg := newSnapshotFixtureWithRenderer(t, log, rendersnapshot.Renderer{})
	return svc, cfg
}

func newSnapshotFixtureWithRenderer(t *testing.T, log *memoryLog, renderer ports.SnapshotRenderer) (*SnapshotService, SnapshotConfig) {
	t.Helper()

	dir := t.TempDir()
	cfg := SnapshotConfig{
		RecentPath:     filepath.Join(dir, "communication.md"),
		ArchivePath:    filepath.Join(dir, "archive.md"),
		StructuredPath: filepath.Join(dir, "snapshot.json"),
		SidebandPath:   filepath.Join(dir, "events.errors.log"),
		RecentWindow:   3,
	}

	clock := fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewSnapshotService(log, renderer, nil, clock, cfg, nil)

	return svc, cfg
}

// brokenStructuredRenderer renders the textual views normally and fails on
// the structured view, forcing a failure after the first artifacts are
// already replaced.
type brokenStructuredRenderer struct {
	rendersnapshot.Renderer
	fail bool
}

func (r *brokenStructuredRenderer) RenderStructured(generatedAt time.Time, recent []domain.InteractionGroup, allEvents []domain.Event) ([]byte, error) {
	if r.fail {
		return nil, fmt.Errorf("structured render exploded")
	}

	return r.Renderer.RenderStructured(generatedAt, recent, allEvents)
}

func logWithInteractions(interactions ...int) *memoryLog {
	log := &memoryLog{}
	for i, interaction := range interactions {
		log.events = append(log.events, domain.Event{
			Interaction: interaction,
			Actor:       "agent1",
			Type:        domain.TypeMessage,
			Content: domain.ObjectContent(map[string]any{
				"from": "agent1", "to": "all", "message": fmt.Sprintf("msg %d", i),
			}),
			Timestamp: time.Date(2026, 3, 1, 11, 0, i, 0, time.UTC),
		})
	}

	return log
}

func TestRegenerateEmptyLog(t *testing.T) {
	t.Parallel()

	svc, cfg := newSnapshotFixture(t, &memoryLog{})

	result, err := svc.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.EventCount)
	assert.Empty(t, result.RecentInteractions)
	assert.Empty(t, result.ArchivedInteractions)

	recent, err := os.ReadFile(cfg.RecentPath)
	require.NoError(t, err)
	assert.Contains(t, string(recent), "No interactions recorded yet.")

	archive, err := os.ReadFile(cfg.ArchivePath)
	require.NoError(t, err)
	assert.Contains(t, string(archive), "No archived interactions.")

	structured, err := os.ReadFile(cfg.StructuredPath)
	require.NoError(t, err)
	assert.Contains(t, string(structured), `"event_count": 0`)
}

func TestRegenerateAllRecentWithinWindow(t *testing.T) {
	t.Parallel()

	svc, cfg := newSnapshotFixture(t, logWithInteractions(1, 1, 2, 3))

	result, err := svc.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.EventCount)
	assert.Equal(t, []int{1, 2, 3}, result.RecentInteractions)
	assert.Empty(t, result.ArchivedInteractions)

	archive, err := os.ReadFile(cfg.ArchivePath)
	require.NoError(t, err)
	assert.Contains(t, string(archive), "No archived interactions.")
}

func TestRegeneratePartitionsBeyondWindow(t *testing.T) {
	t.Parallel()

	svc, cfg := newSnapshotFixture(t, logWithInteractions(1, 2, 3, 4, 5, 6))

	result, err := svc.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6}, result.RecentInteractions)
	assert.Equal(t, []int{1, 2, 3}, result.ArchivedInteractions)

	recent, err := os.ReadFile(cfg.RecentPath)
	require.NoError(t, err)
	assert.Contains(t, string(recent), "## Interaction 4")
	assert.NotContains(t, string(recent), "## Interaction 1")

	archive, err := os.ReadFile(cfg.ArchivePath)
	require.NoError(t, err)
	assert.Contains(t, string(archive), "## Interaction 1")
	assert.NotContains(t, string(archive), "## Interaction 4")
}

func TestRegenerateIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, cfg := newSnapshotFixture(t, logWithInteractions(1, 2, 3, 4, 5))

	_, err := svc.Regenerate(context.Background())
	require.NoError(t, err)

	firstRecent, err := os.ReadFile(cfg.RecentPath)
	require.NoError(t, err)
	firstArchive, err := os.ReadFile(cfg.ArchivePath)
	require.NoError(t, err)
	firstStructured, err := os.ReadFile(cfg.StructuredPath)
	require.NoError(t, err)

	_, err = svc.Regenerate(context.Background())
	require.NoError(t, err)

	secondRecent, err := os.ReadFile(cfg.RecentPath)
	require.NoError(t, err)
	secondArchive, err := os.ReadFile(cfg.ArchivePath)
	require.NoError(t, err)
	secondStructured, err := os.ReadFile(cfg.StructuredPath)
	require.NoError(t, err)

	assert.Equal(t, firstRecent, secondRecent)
	assert.Equal(t, firstArchive, secondArchive)
	assert.Equal(t, firstStructured, secondStructured)
}

func TestRegenerateIsolatesMalformedLines(t *testing.T) {
	t.Parallel()

	log := logWithInteractions(1, 2)
	log.parseErrs = []domain.ParseError{
		{Line: 2, Raw: "{broken", Err: fmt.Errorf("unexpected end of input")},
	}
	svc, cfg := newSnapshotFixture(t, log)

	result, err := svc.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.EventCount)
	assert.Equal(t, 1, result.SkippedLines)

	sideband, err := os.ReadFile(cfg.SidebandPath)
	require.NoError(t, err)
	assert.Contains(t, string(sideband), "line 2: {broken")
}

func TestRegenerateRestoresArtifactsOnFailure(t *testing.T) {
	t.Parallel()

	log := logWithInteractions(1, 2, 3, 4)
	renderer := &brokenStructuredRenderer{}
	svc, cfg := newSnapshotFixtureWithRenderer(t, log, renderer)

	// Establish a known-good previous state.
	_, err := svc.Regenerate(context.Background())
	require.NoError(t, err)

	goodRecent, err := os.ReadFile(cfg.RecentPath)
	require.NoError(t, err)
	goodArchive, err := os.ReadFile(cfg.ArchivePath)
	require.NoError(t, err)
	goodStructured, err := os.ReadFile(cfg.StructuredPath)
	require.NoError(t, err)

	log.events = append(log.events, domain.Event{
		Interaction: 9,
		Actor:       "agent2",
		Type:        domain.TypeMessage,
		Content:     domain.TextContent("new"),
		Timestamp:   time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC),
	})
	renderer.fail = true

	_, err = svc.Regenerate(context.Background())
	require.Error(t, err)

	restoredRecent, err := os.ReadFile(cfg.RecentPath)
	require.NoError(t, err)
	restoredArchive, err := os.ReadFile(cfg.ArchivePath)
	require.NoError(t, err)
	restoredStructured, err := os.ReadFile(cfg.StructuredPath)
	require.NoError(t, err)

	assert.Equal(t, goodRecent, restoredRecent)
	assert.Equal(t, goodArchive, restoredArchive)
	assert.Equal(t, goodStructured, restoredStructured)

	_, statErr := os.Stat(cfg.RecentPath + ".bak")
	assert.True(t, os.IsNotExist(statErr), "backups should not linger after restore")
}

func TestRegenerateFailsWhenLogUnreadable(t *testing.T) {
	t.Parallel()

	log := logWithInteractions(1)
	svc, cfg := newSnapshotFixture(t, log)

	_, err := svc.Regenerate(context.Background())
	require.NoError(t, err)
	goodRecent, err := os.ReadFile(cfg.RecentPath)
	require.NoError(t, err)

	log.readErr = fmt.Errorf("%w: disk gone", domain.ErrLogUnreadable)

	_, err = svc.Regenerate(context.Background())
	require.ErrorIs(t, err, domain.ErrLogUnreadable)

	restored, err := os.ReadFile(cfg.RecentPath)
	require.NoError(t, err)
	assert.Equal(t, goodRecent, restored)
}
