package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/nexus-agents/nexus/internal/adapters/agentfile"
	"github.com/nexus-agents/nexus/internal/adapters/flock"
	"github.com/nexus-agents/nexus/internal/adapters/logfile"
	agentsrender "github.com/nexus-agents/nexus/internal/adapters/render/agents"
	rendersnapshot "github.com/nexus-agents/nexus/internal/adapters/render/snapshot"
	"github.com/nexus-agents/nexus/internal/application"
	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/nexus-agents/nexus/internal/ports"
)

const (
	configName      = "config"
	configType      = "toml"
	configDirName   = ".nexus"
	snapshotLockExt = ".lock"
)

type app struct {
	events        *application.EventService
	snapshots     *application.SnapshotService
	agents        *application.AgentService
	agentRenderer func([]domain.Agent, agentsrender.RenderOptions) string
	logPath       string
	artifactPaths []string
	watchDebounce time.Duration
	heartbeatTick time.Duration
	staleAfter    time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

func wireApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := logfile.NewStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("wire event store: %w", err)
	}

	registry, err := agentfile.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire agent registry: %w", err)
	}

	snapshotCfg := application.SnapshotConfig{
		RecentPath:     cfg.GetString("snapshot.recent_path"),
		ArchivePath:    cfg.GetString("snapshot.archive_path"),
		StructuredPath: cfg.GetString("snapshot.structured_path"),
		SidebandPath:   cfg.GetString("snapshot.sideband_path"),
		RecentWindow:   cfg.GetInt("snapshot.recent_window"),
	}

	lockOpts := flock.Options{
		AttemptTimeout: time.Duration(cfg.GetInt("lock.timeout_seconds")) * time.Second,
		Attempts:       cfg.GetInt("lock.attempts"),
		Backoff:        time.Duration(cfg.GetInt("lock.backoff_seconds")) * time.Second,
	}
	snapshotLock := flock.NewGuard(snapshotCfg.RecentPath+snapshotLockExt, lockOpts, logger)

	clock := ports.SystemClock{}
	events := application.NewEventService(store, clock)
	snapshots := application.NewSnapshotService(store, rendersnapshot.Renderer{}, snapshotLock, clock, snapshotCfg, logger)
	agents := application.NewAgentService(registry, events, clock)

	return &app{
		events:        events,
		snapshots:     snapshots,
		agents:        agents,
		agentRenderer: agentsrender.Render,
		logPath:       store.LogPath(),
		artifactPaths: []string{
			snapshotCfg.RecentPath,
			snapshotCfg.ArchivePath,
			snapshotCfg.StructuredPath,
		},
		watchDebounce: time.Duration(cfg.GetInt("watch.debounce_ms")) * time.Millisecond,
		heartbeatTick: time.Duration(cfg.GetInt("watch.heartbeat_seconds")) * time.Second,
		staleAfter:    time.Duration(cfg.GetInt("agents.stale_after_seconds")) * time.Second,
		now:           time.Now,
		logger:        logger,
	}, nil
}

func loadConfig() (*viper.Viper, error) {
	cfg := viper.New()
	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(".")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		cfg.AddConfigPath(filepath.Join(homeDir, configDirName))
	}

	cfg.SetDefault("log.path", "events.log")
	cfg.SetDefault("agents.path", "agents.toml")
	cfg.SetDefault("agents.stale_after_seconds", 300)
	cfg.SetDefault("snapshot.recent_path", "communication.md")
	cfg.SetDefault("snapshot.archive_path", "archive.md")
	cfg.SetDefault("snapshot.structured_path", "snapshot.json")
	cfg.SetDefault("snapshot.sideband_path", "events.errors.log")
	cfg.SetDefault("snapshot.recent_window", 3)
	cfg.SetDefault("lock.timeout_seconds", 2)
	cfg.SetDefault("lock.attempts", 3)
	cfg.SetDefault("lock.backoff_seconds", 1)
	cfg.SetDefault("watch.debounce_ms", 500)
	cfg.SetDefault("watch.heartbeat_seconds", 60)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return cfg, nil
}
