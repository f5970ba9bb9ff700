package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"debtman/internal/config"
	"debtman/internal/reconnect"
	"debtman/internal/testutil"
)

func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()

	base := t.TempDir()
	cfg := config.NewConfig(base)

	s, err := NewSession(cfg, "u1")
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	dataDir := filepath.Join(base, "granted")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}
	return s, dataDir
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s, dataDir := newTestSession(t)

	// A fresh user has nothing persisted.
	state, err := s.Reconnect(ctx)
	if err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if state != reconnect.NeedsConfiguration {
		t.Fatalf("Reconnect() = %v, want NeedsConfiguration", state)
	}

	// Granting a folder connects the session.
	state, err = s.Configure(ctx, dataDir)
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if state != reconnect.Connected {
		t.Fatalf("Configure() = %v, want Connected", state)
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.State != reconnect.Connected {
		t.Errorf("Status().State = %v", status.State)
	}
	if status.FolderConfig == nil || !status.FolderConfig.IsValid {
		t.Errorf("Status().FolderConfig = %+v, want valid", status.FolderConfig)
	}

	// Documents round-trip through the connected folder.
	doc, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	doc.Clients = testutil.SampleDocument("u1", doc.Metadata.LastModifiedAt).Clients
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Clients) != 2 {
		t.Errorf("loaded %d clients, want 2", len(loaded.Clients))
	}

	if _, err := os.Stat(filepath.Join(dataDir, "user_data", "u1", "data.json")); err != nil {
		t.Errorf("data file not in the granted folder: %v", err)
	}
}

func TestSessionValidateAndRepair(t *testing.T) {
	ctx := context.Background()
	s, dataDir := newTestSession(t)

	if _, err := s.Configure(ctx, dataDir); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	doc, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	sample := testutil.SampleDocument("u1", doc.Metadata.LastModifiedAt)
	doc.Clients = sample.Clients[:1]
	doc.Debts = sample.Debts
	doc.CollectionHistory = sample.CollectionHistory
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	result, err := s.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.IsValid {
		t.Fatal("Validate() = valid with an orphaned debt")
	}

	repaired, err := s.Repair(ctx)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if !repaired.IsValid {
		t.Errorf("Repair() left findings: %+v", repaired.Errors)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Debts) != 1 {
		t.Errorf("loaded %d debts after repair, want 1", len(loaded.Debts))
	}
}

func TestSessionExport(t *testing.T) {
	ctx := context.Background()
	s, dataDir := newTestSession(t)

	if _, err := s.Configure(ctx, dataDir); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	name, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, name)); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

func TestSessionReset(t *testing.T) {
	ctx := context.Background()
	s, dataDir := newTestSession(t)

	if _, err := s.Configure(ctx, dataDir); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	doc, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dataDir, "user_data", "u1")); !os.IsNotExist(err) {
		t.Error("user data directory survived reset")
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.FolderConfig != nil {
		t.Errorf("FolderConfig = %+v after reset, want nil", status.FolderConfig)
	}
}
