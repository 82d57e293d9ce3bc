// Package config provides configuration for the picket CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	kdl "github.com/sblinch/kdl-go"
)

// ConfigFileName is the name of the picket configuration file.
const ConfigFileName = ".picket.kdl"

// Config represents the picket configuration.
type Config struct {
	// Relay connection settings
	Relay *RelayConfig `kdl:"relay"`

	// Picker interaction settings
	Picker *PickerConfig `kdl:"picker"`

	// Assistant backends
	Assistant *AssistantConfig `kdl:"assistant"`

	// Workspace identity overrides
	Workspace *WorkspaceConfig `kdl:"workspace"`
}

// RelayConfig tunes the localhost relay.
type RelayConfig struct {
	// BasePort is the first candidate port
	BasePort int `kdl:"base-port"`
	// PortCount is the number of consecutive candidate ports
	PortCount int `kdl:"port-count"`
	// RetryIntervalMS is the reconnect tick in milliseconds
	RetryIntervalMS int `kdl:"retry-interval"`
}

// PickerConfig tunes picker interaction and property capture.
type PickerConfig struct {
	// HoldThresholdMS is how long the modifier must be held before arming
	HoldThresholdMS int `kdl:"hold-threshold"`
	// MaxDepth bounds property capture nesting
	MaxDepth int `kdl:"max-depth"`
	// ListBreadth bounds captured list length
	ListBreadth int `kdl:"list-breadth"`
	// MapBreadth bounds captured object key count
	MapBreadth int `kdl:"map-breadth"`
}

// AssistantConfig configures assistant backends.
type AssistantConfig struct {
	// Model selects the Anthropic model
	Model string `kdl:"model"`
	// CopilotCommand is the external command hook for the copilot target
	CopilotCommand string `kdl:"copilot-command"`
}

// WorkspaceConfig overrides the workspace identity advertised to pickers.
type WorkspaceConfig struct {
	Name string `kdl:"name"`
	Path string `kdl:"path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Relay: &RelayConfig{
			BasePort:        9765,
			PortCount:       5,
			RetryIntervalMS: 5000,
		},
		Picker: &PickerConfig{
			HoldThresholdMS: 300,
			MaxDepth:        3,
			ListBreadth:     5,
			MapBreadth:      10,
		},
		Assistant: &AssistantConfig{},
		Workspace: &WorkspaceConfig{},
	}
}

// RetryInterval returns the reconnect tick as a duration.
func (r *RelayConfig) RetryInterval() time.Duration {
	return time.Duration(r.RetryIntervalMS) * time.Millisecond
}

// HoldThreshold returns the arming hold threshold as a duration.
func (p *PickerConfig) HoldThreshold() time.Duration {
	return time.Duration(p.HoldThresholdMS) * time.Millisecond
}

// LoadConfig loads configuration from the specified directory.
// It looks for .picket.kdl in the directory and its parents, and loads
// a .env file from the same directory when one exists.
func LoadConfig(dir string) (*Config, error) {
	configPath := FindConfigFile(dir)
	if configPath == "" {
		loadDotEnv(dir)
		return DefaultConfig(), nil
	}

	loadDotEnv(filepath.Dir(configPath))
	return LoadConfigFile(configPath)
}

// FindConfigFile searches for .picket.kdl starting from dir and walking up.
func FindConfigFile(dir string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(absDir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			// Reached root
			break
		}
		absDir = parent
	}

	return ""
}

// LoadConfigFile loads configuration from a specific file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(string(data))
}

// ParseConfig parses KDL configuration data.
func ParseConfig(data string) (*Config, error) {
	cfg := DefaultConfig()

	if err := kdl.Unmarshal([]byte(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// WorkspaceIdentity resolves the name and path advertised to pickers.
// Unset values fall back to the current directory.
func (c *Config) WorkspaceIdentity() (name, path string) {
	name = c.Workspace.Name
	path = c.Workspace.Path
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = wd
		}
	}
	if name == "" && path != "" {
		name = filepath.Base(path)
	}
	return name, path
}

// APIKey returns the Anthropic API key from the environment.
func APIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func loadDotEnv(dir string) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		_ = godotenv.Load(envPath)
	}
}

// WriteDefaultConfig writes a default configuration file with documentation.
func WriteDefaultConfig(path string) error {
	defaultKDL := `// Picket Configuration
// This file configures the relay, picker, and assistant backends

// Relay connection settings
relay {
    base-port 9765      // First candidate port
    port-count 5        // Consecutive candidate ports
    retry-interval 5000 // Reconnect tick in ms
}

// Picker interaction settings
picker {
    hold-threshold 300 // Modifier hold before arming, in ms
    max-depth 3        // Property capture nesting bound
    list-breadth 5     // Captured list length bound
    map-breadth 10     // Captured object key bound
}

// Assistant backends
assistant {
    // model "claude-sonnet-4-5"
    // copilot-command "code --chat"
}

// Workspace identity advertised to pickers
workspace {
    // name "my-app"
    // path "/home/me/my-app"
}
`
	return os.WriteFile(path, []byte(defaultKDL), 0644)
}
