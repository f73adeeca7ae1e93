// Package agentfile stores agent status records in a TOML file next to the
// event log. All writes go through a read-modify-write update held under a
// per-path mutex and land via temp-file-then-rename.
package agentfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/nexus-agents/nexus/internal/ports"
)

const (
	agentsPathKey    = "agents.path"
	defaultAgentFile = "agents.toml"
	agentsFileMode   = 0o644
	agentsDirMode    = 0o755
	tempFilePattern  = ".agents-*.toml.tmp"
)

type Registry struct {
	agentsPath string
	mu         *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.AgentRegistry = (*Registry)(nil)

func NewRegistry(cfg *viper.Viper) (*Registry, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	cfg.SetDefault(agentsPathKey, defaultAgentFile)

	agentsPath, err := filepath.Abs(cfg.GetString(agentsPathKey))
	if err != nil {
		return nil, fmt.Errorf("resolve agents path: %w", err)
	}
	agentsPath = filepath.Clean(agentsPath)

	return &Registry{agentsPath: agentsPath, mu: lockForPath(agentsPath)}, nil
}

func (r *Registry) GetByID(ctx context.Context, id domain.AgentID) (domain.Agent, error) {
	if err := ctx.Err(); err != nil {
		return domain.Agent{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Agent{}, err
	}

	for _, entry := range file.Agents {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.Agent{}, domain.ErrAgentNotFound
}

func (r *Registry) List(ctx context.Context) ([]domain.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	agents := make([]domain.Agent, 0, len(file.Agents))
	for _, entry := range file.Agents {
		agents = append(agents, fromSchema(entry))
	}

	return agents, nil
}

// Update applies fn to the current record for id under the write lock and
// persists the result atomically. A missing id hands fn a zero-valued agent
// carrying the requested ID.
func (r *Registry) Update(ctx context.Context, id domain.AgentID, fn func(domain.Agent) (domain.Agent, error)) (domain.Agent, error) {
	if err := ctx.Err(); err != nil {
		return domain.Agent{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Agent{}, err
	}

	current := domain.Agent{ID: id}
	index := -1
	for i, entry := range file.Agents {
		if entry.ID == string(id) {
			current = fromSchema(entry)
			index = i
			break
		}
	}

	updated, err := fn(current)
	if err != nil {
		return domain.Agent{}, err
	}
	updated.ID = id

	encoded := toSchema(updated)
	if index >= 0 {
		file.Agents[index] = encoded
	} else {
		file.Agents = append(file.Agents, encoded)
	}

	if err := ctx.Err(); err != nil {
		return domain.Agent{}, err
	}

	if err := r.writeSchema(file); err != nil {
		return domain.Agent{}, err
	}

	return updated, nil
}

func (r *Registry) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.agentsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read agents file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode agents file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Registry) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.agentsPath), agentsDirMode); err != nil {
		return fmt.Errorf("create agents directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode agents file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.agentsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp agents file: %w", err)
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
		return fmt.Errorf("write temp agents file: %w", err)
	}

	if err := tempFile.Chmod(agentsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp agents file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp agents file: %w", err)
	}

	if err := os.Rename(tempName, r.agentsPath); err != nil {
		return fmt.Errorf("replace agents file: %w", err)
	}

	cleanup = false
	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func toSchema(agent domain.Agent) agentSchema {
	return agentSchema{
		ID:           string(agent.ID),
		SessionID:    agent.SessionID,
		Type:         agent.Type,
		Description:  agent.Description,
		State:        string(agent.State),
		Detail:       agent.Detail,
		RegisteredAt: formatTime(agent.RegisteredAt),
		LastSeen:     formatTime(agent.LastSeen),
	}
}

func fromSchema(entry agentSchema) domain.Agent {
	return domain.Agent{
		ID:           domain.AgentID(entry.ID),
		SessionID:    entry.SessionID,
		Type:         entry.Type,
		Description:  entry.Description,
		State:        domain.AgentState(entry.State),
		Detail:       entry.Detail,
		RegisteredAt: parseTime(entry.RegisteredAt),
		LastSeen:     parseTime(entry.LastSeen),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
