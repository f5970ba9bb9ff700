package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for the debt-manager storage core.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	Store     StoreConfig     `toml:"store"`
	Cache     CacheConfig     `toml:"cache"`
	Tiers     []TierConfig    `toml:"tiers"`
	Retry     RetryConfig     `toml:"retry"`
	Backups   BackupsConfig   `toml:"backups"`
	Reconnect ReconnectConfig `toml:"reconnect"`
}

// StoreConfig configures the embedded store holding handles and folder
// configuration. This uses a tagged union pattern - the Type field determines
// which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// CacheConfig configures the local key-value cache backing the last-resort
// storage tier.
type CacheConfig struct {
	Type          string `toml:"type"`            // "sqlite" or "memory"
	MaxValueBytes int64  `toml:"max_value_bytes"` // tier-3 payload ceiling; defaults to 5MB
}

// TierConfig describes one persistence tier. Tier order in the config is the
// order the coordinator tries them.
type TierConfig struct {
	Type      string `toml:"type"`                 // "handle", "export", or "cache"
	ExportDir string `toml:"export_dir,omitempty"` // only used for type=export
}

// RetryConfig bounds the primary-tier retry loop.
type RetryConfig struct {
	MaxAttempts int     `toml:"max_attempts"` // defaults to 2
	DelaysMS    []int64 `toml:"delays_ms"`    // defaults to 1s, 2s, 4s, 8s
}

// BackupsConfig controls backup rotation under the connected folder.
type BackupsConfig struct {
	Retain int `toml:"retain"` // defaults to 10
}

// ReconnectConfig controls session-start reconnection.
type ReconnectConfig struct {
	StartDelayMS int64 `toml:"start_delay_ms"` // deliberate delay before the first probe
}

// Defaults applied where the config file leaves values unset.
const (
	DefaultCacheMaxValueBytes = 5 * 1024 * 1024
	DefaultBackupRetain       = 10
	DefaultRetryMaxAttempts   = 2
)

// DefaultRetryDelaysMS is the transient-error backoff schedule.
var DefaultRetryDelaysMS = []int64{1000, 2000, 4000, 8000}

// NewConfig creates a Config with the provided base directory and defaults.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store:   StoreConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "store")},
		Cache:   CacheConfig{Type: "sqlite", MaxValueBytes: DefaultCacheMaxValueBytes},
		Tiers: []TierConfig{
			{Type: "handle"},
			{Type: "export", ExportDir: filepath.Join(baseDir, "exports")},
			{Type: "cache"},
		},
		Retry:   RetryConfig{MaxAttempts: DefaultRetryMaxAttempts, DelaysMS: DefaultRetryDelaysMS},
		Backups: BackupsConfig{Retain: DefaultBackupRetain},
	}
}

// ApplyDefaults fills unset fields in place.
func (c *Config) ApplyDefaults() {
	if c.Cache.MaxValueBytes <= 0 {
		c.Cache.MaxValueBytes = DefaultCacheMaxValueBytes
	}
	if c.Backups.Retain <= 0 {
		c.Backups.Retain = DefaultBackupRetain
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if len(c.Retry.DelaysMS) == 0 {
		c.Retry.DelaysMS = DefaultRetryDelaysMS
	}
	if len(c.Tiers) == 0 {
		c.Tiers = []TierConfig{
			{Type: "handle"},
			{Type: "export", ExportDir: filepath.Join(c.BaseDir, "exports")},
			{Type: "cache"},
		}
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
