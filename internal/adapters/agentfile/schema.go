package agentfile

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int           `toml:"version"`
	Agents  []agentSchema `toml:"agents"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported agents schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type agentSchema struct {
	ID           string `toml:"id"`
	SessionID    string `toml:"session_id"`
	Type         string `toml:"type"`
	Description  string `toml:"description,omitempty"`
	State        string `toml:"state"`
	Detail       string `toml:"detail,omitempty"`
	RegisteredAt string `toml:"registered_at"`
	LastSeen     string `toml:"last_seen"`
}
