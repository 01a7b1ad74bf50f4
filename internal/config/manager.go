package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AppName names the per-user config directory.
const AppName = "gai-symptom-resolver"

// Storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds the user's persistent configuration preferences. The API key
// is not part of it; it lives in its own storage record (see KeyStore).
type Config struct {
	Provider string `json:"provider,omitempty"`  // gemini, openai, anthropic, ollama
	Model    string `json:"model,omitempty"`     // Default model name
	BaseURL  string `json:"base_url,omitempty"`  // Optional override for API base URL
	Storage  string `json:"storage,omitempty"`   // file, sqlite or memory
	DataDir  string `json:"data_dir,omitempty"`  // Where records are stored
	LogLevel string `json:"log_level,omitempty"` // debug, info, warn, error
	LogDev   bool   `json:"log_dev,omitempty"`   // Console-formatted logs
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a manager rooted in the user's config directory.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return NewManagerAt(filepath.Join(configDir, AppName)), nil
}

// NewManagerAt creates a manager rooted in dir.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// Dir returns the configuration directory.
func (m *Manager) Dir() string { return m.configDir }

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the configuration from disk.
// If the file does not exist, it returns an empty Config and no error.
func (m *Manager) Load() (*Config, error) {
	data, err := os.ReadFile(m.GetConfigPath())
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config json: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to disk with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}

// Resolve loads the file, overlays RESOLVER_* environment variables and
// fills defaults. The result is what the process runs with; it is not saved.
func (m *Manager) Resolve() (*Config, error) {
	cfg, err := m.Load()
	if err != nil {
		return nil, err
	}
	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	cfg.Overlay(env)
	cfg.applyDefaults(m.configDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(configDir string) {
	if c.Storage == "" {
		c.Storage = StorageFile
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(configDir, "data")
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Storage {
	case "", StorageFile, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q (supported: file, sqlite, memory)", c.Storage)
	}
	return nil
}
