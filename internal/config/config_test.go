package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 9765, cfg.Relay.BasePort)
	assert.Equal(t, 5, cfg.Relay.PortCount)
	assert.Equal(t, 5*time.Second, cfg.Relay.RetryInterval())
	assert.Equal(t, 300*time.Millisecond, cfg.Picker.HoldThreshold())
	assert.Equal(t, 3, cfg.Picker.MaxDepth)
	assert.Equal(t, 5, cfg.Picker.ListBreadth)
	assert.Equal(t, 10, cfg.Picker.MapBreadth)
}

func TestParseConfig(t *testing.T) {
	data := `
relay {
    base-port 9800
    port-count 3
    retry-interval 1000
}

picker {
    hold-threshold 500
    max-depth 4
}

assistant {
    model "claude-sonnet-4-5"
    copilot-command "code --chat"
}

workspace {
    name "my-app"
}
`
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, 9800, cfg.Relay.BasePort)
	assert.Equal(t, 3, cfg.Relay.PortCount)
	assert.Equal(t, time.Second, cfg.Relay.RetryInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.Picker.HoldThreshold())
	assert.Equal(t, 4, cfg.Picker.MaxDepth)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Assistant.Model)
	assert.Equal(t, "code --chat", cfg.Assistant.CopilotCommand)
	assert.Equal(t, "my-app", cfg.Workspace.Name)
}

func TestParseConfigInvalid(t *testing.T) {
	_, err := ParseConfig(`relay { base-port `)
	assert.Error(t, err)
}

func TestFindConfigFileWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "components")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Empty(t, FindConfigFile(nested))

	cfgPath := filepath.Join(root, ConfigFileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("relay { base-port 9800 }"), 0o644))

	assert.Equal(t, cfgPath, FindConfigFile(nested))
	assert.Equal(t, cfgPath, FindConfigFile(root))
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 9765, cfg.Relay.BasePort)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte("relay { base-port 9900 }"), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 9900, cfg.Relay.BasePort)
	// Unconfigured sections keep their defaults.
	assert.Equal(t, 300*time.Millisecond, cfg.Picker.HoldThreshold())
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, WriteDefaultConfig(path))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9765, cfg.Relay.BasePort)
	assert.Equal(t, 300*time.Millisecond, cfg.Picker.HoldThreshold())
}

func TestWorkspaceIdentity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workspace.Name = "my-app"
	cfg.Workspace.Path = "/home/me/my-app"
	name, path := cfg.WorkspaceIdentity()
	assert.Equal(t, "my-app", name)
	assert.Equal(t, "/home/me/my-app", path)

	cfg = DefaultConfig()
	cfg.Workspace.Path = "/home/me/projects/web"
	name, _ = cfg.WorkspaceIdentity()
	assert.Equal(t, "web", name)

	cfg = DefaultConfig()
	name, path = cfg.WorkspaceIdentity()
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, path)
	assert.Equal(t, filepath.Base(wd), name)
}
