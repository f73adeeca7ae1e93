// Package logfile implements the append-only event log as a newline-delimited
// JSON file guarded by an advisory file lock, with an offline buffer fallback
// for appends that cannot acquire the lock in time.
package logfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/nexus-agents/nexus/internal/adapters/flock"
	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/nexus-agents/nexus/internal/ports"
)

const (
	logPathKey        = "log.path"
	offlinePathKey    = "log.offline_path"
	lockTimeoutKey    = "lock.timeout_seconds"
	lockAttemptsKey   = "lock.attempts"
	lockBackoffKey    = "lock.backoff_seconds"
	defaultLogFile    = "events.log"
	defaultOfflineExt = ".offline"
	logFileMode       = 0o644
	logDirMode        = 0o755
	lockSuffix        = ".lock"

	// Long lines happen when contributions carry whole files.
	maxLineBytes = 4 << 20
)

type Store struct {
	logPath     string
	offlinePath string
	lock        *flock.Lock
	lockOpts    flock.Options
	logger      *slog.Logger
}

var _ ports.EventLog = (*Store)(nil)

func NewStore(cfg *viper.Viper, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg.SetDefault(logPathKey, defaultLogFile)
	cfg.SetDefault(lockTimeoutKey, 2)
	cfg.SetDefault(lockAttemptsKey, 3)
	cfg.SetDefault(lockBackoffKey, 1)

	logPath, err := filepath.Abs(cfg.GetString(logPathKey))
	if err != nil {
		return nil, fmt.Errorf("resolve log path: %w", err)
	}

	offlinePath := cfg.GetString(offlinePathKey)
	if offlinePath == "" {
		offlinePath = logPath + defaultOfflineExt
	}
	offlinePath, err = filepath.Abs(offlinePath)
	if err != nil {
		return nil, fmt.Errorf("resolve offline buffer path: %w", err)
	}

	return &Store{
		logPath:     logPath,
		offlinePath: offlinePath,
		lock:        flock.New(logPath+lockSuffix, logger),
		lockOpts: flock.Options{
			AttemptTimeout: time.Duration(cfg.GetInt(lockTimeoutKey)) * time.Second,
			Attempts:       cfg.GetInt(lockAttemptsKey),
			Backoff:        time.Duration(cfg.GetInt(lockBackoffKey)) * time.Second,
		},
		logger: logger,
	}, nil
}

func (s *Store) LogPath() string {
	return s.logPath
}

// Append durably writes one event under the log's exclusive lock. A zero
// interaction key is replaced with the next key, computed inside the same
// critical section as the write. When the lock cannot be acquired within the
// retry budget the event is diverted to the offline buffer and the call
// fails with domain.ErrLockTimeout: durability is degraded, not lost.
func (s *Store) Append(ctx context.Context, event domain.Event) (domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return domain.Event{}, err
	}
	if event.Type == "" {
		return domain.Event{}, domain.ErrEmptyType
	}

	release, err := s.lock.Acquire(ctx, s.lockOpts)
	if err != nil {
		if errors.Is(err, flock.ErrNotAcquired) {
			return s.appendOffline(event)
		}
		return domain.Event{}, fmt.Errorf("acquire log lock: %w", err)
	}
	defer func() { _ = release() }()

	if event.Interaction == 0 {
		next, err := s.nextInteractionID()
		if err != nil {
			return domain.Event{}, err
		}
		event.Interaction = next
	}

	if err := s.drainOfflineBuffer(); err != nil {
		// The buffer stays intact for the next opportunity.
		s.logger.Warn("offline buffer drain failed", "path", s.offlinePath, "error", err)
	}

	if err := s.appendLine(s.logPath, event); err != nil {
		return domain.Event{}, err
	}

	return event, nil
}

// ReadAll parses the full log in physical order. Each malformed line becomes
// one ParseError; only a log that cannot be read at all yields a non-nil
// error.
func (s *Store) ReadAll(ctx context.Context) ([]domain.Event, []domain.ParseError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	return readEvents(s.logPath)
}

func (s *Store) appendOffline(event domain.Event) (domain.Event, error) {
	if event.Interaction == 0 {
		// Unlocked scan; collisions are an accepted risk of this rare path.
		next, err := s.nextInteractionID()
		if err != nil {
			return domain.Event{}, err
		}
		event.Interaction = next
	}

	if err := s.appendLine(s.offlinePath, event); err != nil {
		return domain.Event{}, fmt.Errorf("append to offline buffer: %w", err)
	}

	s.logger.Error("event diverted to offline buffer",
		"path", s.offlinePath,
		"interaction", event.Interaction,
		"type", event.Type,
	)

	diagnostic := domain.Event{
		Interaction: event.Interaction,
		Actor:       event.Actor,
		Type:        domain.TypeError,
		Content: domain.ObjectContent(map[string]any{
			"source":  "event_store",
			"message": "lock acquisition failed, event buffered offline",
		}),
		Timestamp: event.Timestamp,
	}
	if err := s.appendLine(s.logPath, diagnostic); err != nil {
		s.logger.Warn("unable to record lock failure diagnostic", "error", err)
	}

	return event, fmt.Errorf("append %q event: %w", event.Type, domain.ErrLockTimeout)
}

// drainOfflineBuffer merges buffered events back into the main log and
// removes the buffer. Callers must hold the log lock.
func (s *Store) drainOfflineBuffer() error {
	data, err := os.ReadFile(s.offlinePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read offline buffer: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return os.Remove(s.offlinePath)
	}

	file, err := s.openAppend(s.logPath)
	if err != nil {
		return err
	}

	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("merge offline buffer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close log after merge: %w", err)
	}

	s.logger.Info("offline buffer merged", "path", s.offlinePath)
	return os.Remove(s.offlinePath)
}

func (s *Store) nextInteractionID() (int, error) {
	logged, _, err := readEvents(s.logPath)
	if err != nil {
		return 0, err
	}
	buffered, _, err := readEvents(s.offlinePath)
	if err != nil {
		return 0, err
	}

	return domain.NextInteractionID(append(logged, buffered...)), nil
}

func (s *Store) appendLine(path string, event domain.Event) error {
	line, err := event.EncodeLine()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	file, err := s.openAppend(path)
	if err != nil {
		return err
	}

	if _, err := file.Write(append(line, '\n')); err != nil {
		_ = file.Close()
		return fmt.Errorf("append event line: %w", err)
	}

	return file.Close()
}

func (s *Store) openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), logDirMode); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("open %s for append: %w", filepath.Base(path), err)
	}

	return file, nil
}

func readEvents(path string) ([]domain.Event, []domain.ParseError, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: %s: %v", domain.ErrLogUnreadable, path, err)
	}
	defer func() { _ = file.Close() }()

	var (
		events    []domain.Event
		parseErrs []domain.ParseError
	)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		event, err := domain.DecodeLine(line)
		if err != nil {
			parseErrs = append(parseErrs, domain.ParseError{
				Line: lineNo,
				Raw:  string(line),
				Err:  err,
			})
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", domain.ErrLogUnreadable, path, err)
	}

	return events, parseErrs, nil
}
