package tier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"debtman/internal/core"
	"debtman/internal/testutil"
)

// stubTier records persist calls and fails with a fixed error.
type stubTier struct {
	name      string
	available bool
	failWith  error
	calls     int
	last      []byte
}

func (s *stubTier) Name() string                       { return s.name }
func (s *stubTier) Available(ctx context.Context) bool { return s.available }
func (s *stubTier) Persist(ctx context.Context, filename string, data []byte) error {
	s.calls++
	if s.failWith != nil {
		return s.failWith
	}
	s.last = data
	return nil
}

func TestCoordinatorFirstTierWins(t *testing.T) {
	first := &stubTier{name: "first", available: true}
	second := &stubTier{name: "second", available: true}
	c := NewCoordinator([]core.StorageTier{first, second}, core.NewNopLogger())

	if !c.Persist(context.Background(), "data.json", []byte("x")) {
		t.Fatal("Persist() = false, want true")
	}
	if first.calls != 1 {
		t.Errorf("first.calls = %d, want 1", first.calls)
	}
	if second.calls != 0 {
		t.Errorf("second.calls = %d, want 0", second.calls)
	}
}

func TestCoordinatorSkipsUnavailable(t *testing.T) {
	down := &stubTier{name: "down", available: false}
	up := &stubTier{name: "up", available: true}
	c := NewCoordinator([]core.StorageTier{down, up}, core.NewNopLogger())

	if !c.Persist(context.Background(), "data.json", []byte("x")) {
		t.Fatal("Persist() = false, want true")
	}
	if down.calls != 0 {
		t.Errorf("down.calls = %d, want 0", down.calls)
	}
	if up.calls != 1 {
		t.Errorf("up.calls = %d, want 1", up.calls)
	}
}

func TestCoordinatorFallsThroughFailures(t *testing.T) {
	failing := &stubTier{name: "failing", available: true,
		failWith: core.NewError(core.KindTransient, "tier", errors.New("broken"))}
	cancelled := &stubTier{name: "cancelled", available: true,
		failWith: core.NewError(core.KindUserCancelled, "tier", errors.New("dismissed"))}
	last := &stubTier{name: "last", available: true}
	c := NewCoordinator([]core.StorageTier{failing, cancelled, last}, core.NewNopLogger())

	if !c.Persist(context.Background(), "data.json", []byte("x")) {
		t.Fatal("Persist() = false, want true")
	}
	if last.calls != 1 {
		t.Errorf("last.calls = %d, want 1", last.calls)
	}
}

func TestCoordinatorAllTiersFail(t *testing.T) {
	boom := core.NewError(core.KindTransient, "tier", errors.New("broken"))
	a := &stubTier{name: "a", available: true, failWith: boom}
	b := &stubTier{name: "b", available: true, failWith: boom}
	c := NewCoordinator([]core.StorageTier{a, b}, core.NewNopLogger())

	if c.Persist(context.Background(), "data.json", []byte("x")) {
		t.Error("Persist() = true, want false when every tier fails")
	}
}

// A persistent permission denial on the primary tier gets exactly one retry,
// then the coordinator falls through to the export tier and the save still
// lands.
func TestCoordinatorPermissionDenialFallsToExport(t *testing.T) {
	h := testutil.NewTestHandle()
	denied := core.NewError(core.KindPermissionDenied, "write", errors.New("denied"))
	h.FailWriteWith(denied)

	provider := &testutil.FixedHandleProvider{H: h}
	primary := NewHandleTier(provider, Policy{MaxAttempts: 5}, noSleep)

	exportDir := t.TempDir()
	c := NewCoordinator([]core.StorageTier{primary, NewExportTier(exportDir)}, core.NewNopLogger())

	if !c.Persist(context.Background(), "user_data/u1/data.json", []byte("payload")) {
		t.Fatal("Persist() = false, want true via export tier")
	}

	got, err := os.ReadFile(filepath.Join(exportDir, "user_data_u1_data.json"))
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("export payload = %q", got)
	}
}
