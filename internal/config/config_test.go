package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("/base")

	if cfg.Store.Type != "sqlite" {
		t.Errorf("Store.Type = %q, want sqlite", cfg.Store.Type)
	}
	if cfg.Cache.MaxValueBytes != DefaultCacheMaxValueBytes {
		t.Errorf("Cache.MaxValueBytes = %d", cfg.Cache.MaxValueBytes)
	}
	if cfg.Backups.Retain != DefaultBackupRetain {
		t.Errorf("Backups.Retain = %d", cfg.Backups.Retain)
	}
	if len(cfg.Tiers) != 3 {
		t.Fatalf("Tiers = %+v, want handle/export/cache", cfg.Tiers)
	}
	if cfg.Tiers[0].Type != "handle" || cfg.Tiers[1].Type != "export" || cfg.Tiers[2].Type != "cache" {
		t.Errorf("tier order = %+v", cfg.Tiers)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := NewConfig("/base")
	cfg.Retry.MaxAttempts = 3

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.BaseDir != cfg.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, cfg.BaseDir)
	}
	if got.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", got.Retry.MaxAttempts)
	}
	if len(got.Tiers) != 3 {
		t.Errorf("Tiers = %+v", got.Tiers)
	}
}

func TestReadAppliesDefaults(t *testing.T) {
	minimal := `
base_dir = "/base"

[store]
type = "memory"

[cache]
type = "memory"
`
	m := &Manager{}
	cfg, err := m.Read(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if cfg.Cache.MaxValueBytes != DefaultCacheMaxValueBytes {
		t.Errorf("Cache.MaxValueBytes = %d, want default", cfg.Cache.MaxValueBytes)
	}
	if cfg.Backups.Retain != DefaultBackupRetain {
		t.Errorf("Backups.Retain = %d, want default", cfg.Backups.Retain)
	}
	if cfg.Retry.MaxAttempts != DefaultRetryMaxAttempts {
		t.Errorf("Retry.MaxAttempts = %d, want default", cfg.Retry.MaxAttempts)
	}
	if len(cfg.Retry.DelaysMS) != len(DefaultRetryDelaysMS) {
		t.Errorf("Retry.DelaysMS = %v, want default schedule", cfg.Retry.DelaysMS)
	}
	if len(cfg.Tiers) != 3 {
		t.Errorf("Tiers = %+v, want default tier order", cfg.Tiers)
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dm.toml")
	cfg := NewConfig(t.TempDir())

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.Store.Type != "sqlite" {
		t.Errorf("Store.Type = %q", got.Store.Type)
	}

	if err := Init(path, cfg); err == nil {
		t.Error("Init() should refuse to overwrite an existing config")
	}
}
