package e2e

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeConfigFixture(home))

	_, stderr, err := runNexus(t, binaryPath, home, "init")
	require.NoError(t, err, "stderr: %s", stderr)

	_, stderr, err = runNexus(t, binaryPath, home, "agent", "register", "alice", "--type", "researcher")
	require.NoError(t, err, "stderr: %s", stderr)

	_, stderr, err = runNexus(t, binaryPath, home,
		"event", "message", `{"from":"alice","to":"all","message":"starting work"}`, "--actor", "alice")
	require.NoError(t, err, "stderr: %s", stderr)

	_, stderr, err = runNexus(t, binaryPath, home, "snapshot", "--quiet")
	require.NoError(t, err, "stderr: %s", stderr)

	recent, err := os.ReadFile(filepath.Join(home, "communication.md"))
	require.NoError(t, err)
	assert.Contains(t, string(recent), "starting work")

	stdout, stderr, err := runNexus(t, binaryPath, home, "agent", "list", "--json")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "alice")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "nexus-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/nexus")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build nexus binary: %s", string(output))
	return binaryPath
}

func runNexus(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)
	cmd.Dir = home

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeConfigFixture(home string) error {
	configDir := filepath.Join(home, ".nexus")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	config := fmt.Sprintf(`[log]
path = %q

[agents]
path = %q

[snapshot]
recent_path = %q
archive_path = %q
structured_path = %q
sideband_path = %q
`,
		filepath.Join(home, "events.log"),
		filepath.Join(home, "agents.toml"),
		filepath.Join(home, "communication.md"),
		filepath.Join(home, "archive.md"),
		filepath.Join(home, "snapshot.json"),
		filepath.Join(home, "events.errors.log"),
	)

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(config), 0o644)
}
