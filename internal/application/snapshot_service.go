package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/nexus-agents/nexus/internal/ports"
)

const (
	backupSuffix        = ".bak"
	defaultRecentWindow = 3
	artifactFileMode    = 0o644
	artifactDirMode     = 0o755
)

// SnapshotConfig names the derived artifacts and the recency window.
type SnapshotConfig struct {
	RecentPath     string
	ArchivePath    string
	StructuredPath string
	SidebandPath   string
	RecentWindow   int
}

func (c *SnapshotConfig) applyDefaults() {
	if c.RecentPath == "" {
		c.RecentPath = "communication.md"
	}
	if c.ArchivePath == "" {
		c.ArchivePath = "archive.md"
	}
	if c.StructuredPath == "" {
		c.StructuredPath = "snapshot.json"
	}
	if c.SidebandPath == "" {
		c.SidebandPath = "events.errors.log"
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = defaultRecentWindow
	}
}

// SnapshotResult reports what one regeneration run produced.
type SnapshotResult struct {
	EventCount           int
	RecentInteractions   []int
	ArchivedInteractions []int
	SkippedLines         int
}

// SnapshotService rebuilds the three derived artifacts from the full event
// log: backup, parse, partition, render, then commit or restore. It only
// reads the log; the artifacts are exclusively its own.
type SnapshotService struct {
	log      ports.EventLog
	renderer ports.SnapshotRenderer
	locker   ports.Locker
	clock    ports.Clock
	cfg      SnapshotConfig
	logger   *slog.Logger
}

func NewSnapshotService(log ports.EventLog, renderer ports.SnapshotRenderer, locker ports.Locker, clock ports.Clock, cfg SnapshotConfig, logger *slog.Logger) *SnapshotService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &SnapshotService{
		log:      log,
		renderer: renderer,
		locker:   locker,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Regenerate rebuilds every artifact from scratch. On any failure after the
// backup point the previous artifacts are restored bitwise, so readers never
// observe a half-written snapshot.
func (s *SnapshotService) Regenerate(ctx context.Context) (SnapshotResult, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx)
		if err != nil {
			return SnapshotResult{}, fmt.Errorf("acquire snapshot lock: %w", err)
		}
		defer func() { _ = release() }()
	}

	backups, err := s.backupArtifacts()
	if err != nil {
		return SnapshotResult{}, fmt.Errorf("back up artifacts: %w", err)
	}

	result, err := s.rebuild(ctx)
	if err != nil {
		if restoreErr := s.restoreArtifacts(backups); restoreErr != nil {
			return SnapshotResult{}, fmt.Errorf("regenerate snapshot: %w (restore failed: %v)", err, restoreErr)
		}
		s.logger.Error("snapshot regeneration failed, previous artifacts restored", "error", err)
		return SnapshotResult{}, fmt.Errorf("regenerate snapshot: %w", err)
	}

	s.removeBackups(backups)
	return result, nil
}

func (s *SnapshotService) rebuild(ctx context.Context) (SnapshotResult, error) {
	events, parseErrs, err := s.log.ReadAll(ctx)
	if err != nil {
		return SnapshotResult{}, err
	}

	if err := s.writeSideband(parseErrs); err != nil {
		return SnapshotResult{}, err
	}
	for _, parseErr := range parseErrs {
		s.logger.Error("malformed log line skipped", "line", parseErr.Line, "error", parseErr.Err)
	}

	groups := domain.GroupByInteraction(events)
	recent, archived := domain.Partition(groups, s.cfg.RecentWindow)

	if err := writeArtifact(s.cfg.RecentPath, []byte(s.renderer.RenderRecent(recent))); err != nil {
		return SnapshotResult{}, err
	}
	if err := writeArtifact(s.cfg.ArchivePath, []byte(s.renderer.RenderArchive(archived))); err != nil {
		return SnapshotResult{}, err
	}

	structured, err := s.renderer.RenderStructured(s.clock.Now(), recent, events)
	if err != nil {
		return SnapshotResult{}, err
	}
	if err := writeArtifact(s.cfg.StructuredPath, structured); err != nil {
		return SnapshotResult{}, err
	}

	result := SnapshotResult{
		EventCount:           len(events),
		RecentInteractions:   interactionIDs(recent),
		ArchivedInteractions: interactionIDs(archived),
		SkippedLines:         len(parseErrs),
	}

	s.logger.Info("snapshot regenerated",
		"events", result.EventCount,
		"recent", len(result.RecentInteractions),
		"archived", len(result.ArchivedInteractions),
		"skipped_lines", result.SkippedLines,
	)

	return result, nil
}

func (s *SnapshotService) artifactPaths() []string {
	return []string{s.cfg.RecentPath, s.cfg.ArchivePath, s.cfg.StructuredPath}
}

// backupArtifacts copies each existing artifact to its .bak sibling. The
// returned map records, per artifact, whether a backup exists; artifacts
// absent before the run are removed again on restore.
func (s *SnapshotService) backupArtifacts() (map[string]bool, error) {
	backups := make(map[string]bool, 3)
	for _, path := range s.artifactPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				backups[path] = false
				continue
			}
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}

		if err := os.WriteFile(path+backupSuffix, data, artifactFileMode); err != nil {
			return nil, fmt.Errorf("write backup of %s: %w", filepath.Base(path), err)
		}
		backups[path] = true
	}

	return backups, nil
}

func (s *SnapshotService) restoreArtifacts(backups map[string]bool) error {
	var restoreErr error
	for path, hadBackup := range backups {
		if !hadBackup {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				restoreErr = errors.Join(restoreErr, err)
			}
			continue
		}

		data, err := os.ReadFile(path + backupSuffix)
		if err != nil {
			restoreErr = errors.Join(restoreErr, err)
			continue
		}
		if err := os.WriteFile(path, data, artifactFileMode); err != nil {
			restoreErr = errors.Join(restoreErr, err)
			continue
		}
		_ = os.Remove(path + backupSuffix)
	}

	return restoreErr
}

func (s *SnapshotService) removeBackups(backups map[string]bool) {
	for path, hadBackup := range backups {
		if hadBackup {
			_ = os.Remove(path + backupSuffix)
		}
	}
}

// writeSideband rewrites the sideband file with this run's malformed lines.
// An empty run clears it.
func (s *SnapshotService) writeSideband(parseErrs []domain.ParseError) error {
	if len(parseErrs) == 0 {
		if err := os.Remove(s.cfg.SidebandPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("clear sideband file: %w", err)
		}
		return nil
	}

	var data []byte
	for _, parseErr := range parseErrs {
		data = append(data, fmt.Sprintf("line %d: %s\n", parseErr.Line, parseErr.Raw)...)
	}

	if err := writeArtifact(s.cfg.SidebandPath, data); err != nil {
		return fmt.Errorf("write sideband file: %w", err)
	}

	return nil
}

func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), artifactDirMode); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tempFile.Chmod(artifactFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp artifact: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	cleanup = false
	return nil
}

func interactionIDs(groups []domain.InteractionGroup) []int {
	ids := make([]int, 0, len(groups))
	for _, group := range groups {
		ids = append(ids, group.ID)
	}

	return ids
}
