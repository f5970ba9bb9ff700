package handlestore_test

import (
	"context"
	"errors"
	"testing"

	"debtman/internal/core"
	"debtman/internal/handlestore"
	"debtman/internal/testutil"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := handlestore.NewMemoryStore(testutil.FixedClock())

	ref := core.HandleRef{Type: "memory", Root: "m"}
	if err := store.Save(ctx, "u1", ref); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec == nil || rec.Ref != ref {
		t.Errorf("Get() = %+v, want ref %+v", rec, ref)
	}

	cfg, err := store.Config(ctx, "u1")
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if cfg == nil || !cfg.IsValid {
		t.Errorf("Config() = %+v, want valid config", cfg)
	}
}

func TestMemoryStoreFailWith(t *testing.T) {
	store := handlestore.NewMemoryStore(testutil.FixedClock())
	boom := core.NewError(core.KindStorageUnavailable, "test", errors.New("down"))
	store.FailWith(boom)

	if err := store.Save(context.Background(), "u1", core.HandleRef{Type: "memory"}); !errors.Is(err, boom) {
		t.Errorf("Save() error = %v, want injected failure", err)
	}
	if _, err := store.Get(context.Background(), "u1"); !errors.Is(err, boom) {
		t.Errorf("Get() error = %v, want injected failure", err)
	}

	store.FailWith(nil)
	if err := store.Save(context.Background(), "u1", core.HandleRef{Type: "memory"}); err != nil {
		t.Errorf("Save() error = %v after clearing", err)
	}
}
