package reconnect

import (
	"context"
	"errors"
	"testing"
	"time"

	"debtman/internal/core"
	"debtman/internal/testutil"
)

func skipSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestManager(t *testing.T, store core.HandleStore, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithSleep(skipSleep)}, opts...)
	return NewManager("u1", store, core.NewNopLogger(), testutil.FixedClock(), opts...)
}

func TestReconnectFreshUser(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	m := newTestManager(t, store)

	state, err := m.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if state != NeedsConfiguration {
		t.Fatalf("Reconnect() = %v, want NeedsConfiguration", state)
	}
	if m.Handle() != nil {
		t.Error("Handle() != nil for a fresh user")
	}
	if m.LastError() != nil {
		t.Errorf("LastError() = %v, want nil for a fresh user", m.LastError())
	}

	// No folder config was invented for a user who never configured one.
	cfg, err := store.Config(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if cfg != nil {
		t.Errorf("Config() = %+v, want nil", cfg)
	}
}

// handleless hides the stored handle row while leaving the folder config in
// place, the shape a partially purged store would have.
type handleless struct {
	core.HandleStore
}

func (handleless) Get(ctx context.Context, userID string) (*core.HandleRecord, error) {
	return nil, nil
}

func TestReconnectMissingHandleInvalidatesConfig(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	if err := store.Save(context.Background(), "u1", testutil.NewTestHandle().Ref()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	m := newTestManager(t, handleless{store})
	state, err := m.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if state != NeedsConfiguration {
		t.Fatalf("Reconnect() = %v, want NeedsConfiguration", state)
	}

	cfg, err := store.Config(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if cfg == nil || cfg.IsValid {
		t.Errorf("Config() = %+v, want an invalidated folder config", cfg)
	}
}

func TestReconnectRestoresPersistedHandle(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	h := testutil.NewTestHandle()

	if err := store.Save(context.Background(), "u1", h.Ref()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	m := newTestManager(t, store, WithOpenHandle(func(ref core.HandleRef) (core.ResourceHandle, error) {
		return h, nil
	}))

	state, err := m.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if state != Connected {
		t.Fatalf("Reconnect() = %v, want Connected", state)
	}
	if m.Handle() == nil {
		t.Error("Handle() = nil after successful reconnect")
	}

	cfg, err := store.Config(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if cfg == nil || !cfg.IsValid {
		t.Errorf("Config() = %+v, want a valid folder config", cfg)
	}
}

func TestReconnectIdempotentWhenConnected(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	h := testutil.NewTestHandle()
	if err := store.Save(context.Background(), "u1", h.Ref()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	probes := 0
	m := newTestManager(t, store, WithOpenHandle(func(ref core.HandleRef) (core.ResourceHandle, error) {
		probes++
		return h, nil
	}))

	if _, err := m.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	before, err := store.Config(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}

	state, err := m.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("second Reconnect() error = %v", err)
	}
	if state != Connected {
		t.Errorf("second Reconnect() = %v, want Connected", state)
	}
	if probes != 1 {
		t.Errorf("handle opened %d times, want 1", probes)
	}

	after, err := store.Config(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if *after != *before {
		t.Errorf("folder config changed by a no-op reconnect: %+v -> %+v", before, after)
	}
}

func TestReconnectProbeFailureInvalidates(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	h := testutil.NewTestHandle()
	if err := store.Save(context.Background(), "u1", h.Ref()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	stale := core.NewError(core.KindStaleHandle, "probe", errors.New("folder gone"))
	h.FailProbeWith(stale)

	m := newTestManager(t, store, WithOpenHandle(func(ref core.HandleRef) (core.ResourceHandle, error) {
		return h, nil
	}))

	state, err := m.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if state != NeedsConfiguration {
		t.Fatalf("Reconnect() = %v, want NeedsConfiguration", state)
	}
	if !errors.Is(m.LastError(), stale) {
		t.Errorf("LastError() = %v, want the probe failure", m.LastError())
	}

	cfg, err := store.Config(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Config() = nil, config row should survive invalidation")
	}
	if cfg.IsValid {
		t.Error("Config().IsValid = true, want invalidated after failed probe")
	}
}

func TestReconnectUnresolvableHandleInvalidates(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	if err := store.Save(context.Background(), "u1", core.HandleRef{Type: "memory", Root: "m"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	m := newTestManager(t, store, WithOpenHandle(func(ref core.HandleRef) (core.ResourceHandle, error) {
		return nil, errors.New("cannot reopen")
	}))

	state, err := m.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if state != NeedsConfiguration {
		t.Fatalf("Reconnect() = %v, want NeedsConfiguration", state)
	}

	cfg, err := store.Config(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if cfg.IsValid {
		t.Error("Config().IsValid = true, want invalidated")
	}
}

func TestReconnectStoreUnavailable(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	store.FailWith(core.NewError(core.KindStorageUnavailable, "get", errors.New("db locked")))

	m := newTestManager(t, store)

	state, err := m.Reconnect(context.Background())
	if err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if state != NeedsConfiguration {
		t.Errorf("Reconnect() = %v, want NeedsConfiguration", state)
	}
	if m.LastError() == nil {
		t.Error("LastError() = nil, want the store failure")
	}
}

func TestRetrySavesAndConnects(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	h := testutil.NewTestHandle()
	m := newTestManager(t, store)

	state, err := m.Retry(context.Background(), h)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if state != Connected {
		t.Fatalf("Retry() = %v, want Connected", state)
	}

	rec, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec == nil || rec.Ref != h.Ref() {
		t.Errorf("Get() = %+v, want the granted handle persisted", rec)
	}
}

func TestRetryCancelledGrant(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	h := testutil.NewTestHandle()
	h.FailProbeWith(core.NewError(core.KindUserCancelled, "probe", errors.New("dismissed")))

	m := newTestManager(t, store)

	state, err := m.Retry(context.Background(), h)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if state != NeedsConfiguration {
		t.Errorf("Retry() = %v, want NeedsConfiguration", state)
	}
	if m.Handle() != nil {
		t.Error("Handle() != nil after cancelled grant")
	}

	// Nothing was persisted for the dismissed grant.
	rec, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec != nil {
		t.Errorf("Get() = %+v, want nil", rec)
	}
}

func TestRetryConnectsEvenWhenSaveFails(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)
	h := testutil.NewTestHandle()

	// Probe succeeds, but the store is down: the session still connects with
	// degraded persistence.
	store.FailWith(core.NewError(core.KindStorageUnavailable, "save", errors.New("db locked")))
	m := newTestManager(t, store)

	state, err := m.Retry(context.Background(), h)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if state != Connected {
		t.Errorf("Retry() = %v, want Connected", state)
	}
	if m.Handle() == nil {
		t.Error("Handle() = nil, want the granted handle")
	}
}

func TestStartDelayRunsBeforeProbe(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestHandleStore(clock)

	var slept []time.Duration
	m := NewManager("u1", store, core.NewNopLogger(), clock,
		WithStartDelay(1500*time.Millisecond),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}))

	if _, err := m.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if len(slept) != 1 || slept[0] != 1500*time.Millisecond {
		t.Errorf("slept = %v, want one 1.5s delay", slept)
	}
}
