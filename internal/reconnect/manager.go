// Package reconnect restores a user's directory session at startup: it
// retrieves the persisted handle, probes it, and either reconnects or marks
// the user as needing configuration.
package reconnect

import (
	"context"
	"sync"
	"time"

	"debtman/internal/core"
	"debtman/internal/handle"
)

// State is the session's reconnection state.
type State int

const (
	Idle State = iota
	Reconnecting
	Connected
	NeedsConfiguration
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reconnecting:
		return "reconnecting"
	case Connected:
		return "connected"
	case NeedsConfiguration:
		return "needs_configuration"
	}
	return "unknown"
}

// OpenHandleFunc reconstructs a live handle from a persisted ref.
// Production uses handle.FromRef; tests substitute fakes.
type OpenHandleFunc func(core.HandleRef) (core.ResourceHandle, error)

// Manager drives the per-session state machine
// Idle -> Reconnecting -> {Connected | NeedsConfiguration}.
// Reconnection runs once at session start plus user-triggered retries; there
// is no background polling.
type Manager struct {
	userID     string
	store      core.HandleStore
	logger     core.Logger
	clock      core.Clock
	startDelay time.Duration
	openHandle OpenHandleFunc
	sleep      func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   State
	handle  core.ResourceHandle
	lastErr error
}

// Option configures a Manager.
type Option func(*Manager)

// WithStartDelay sets the deliberate delay before the first probe, so
// reconnection does not race initial session setup.
func WithStartDelay(d time.Duration) Option {
	return func(m *Manager) { m.startDelay = d }
}

// WithOpenHandle overrides how persisted refs become live handles.
func WithOpenHandle(fn OpenHandleFunc) Option {
	return func(m *Manager) { m.openHandle = fn }
}

// WithSleep overrides the delay function. Tests use this to skip real waits.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = fn }
}

// NewManager creates a reconnection manager for one user session.
func NewManager(userID string, store core.HandleStore, logger core.Logger, clock core.Clock, opts ...Option) *Manager {
	m := &Manager{
		userID:     userID,
		store:      store,
		logger:     logger,
		clock:      clock,
		state:      Idle,
		openHandle: handle.FromRef,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Handle returns the live handle, or nil unless Connected.
func (m *Manager) Handle() core.ResourceHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// LastError returns the failure behind the most recent NeedsConfiguration
// transition, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Reconnect restores the session from the persisted handle. Calling it while
// already Connected returns Connected without touching the folder config or
// re-probing.
func (m *Manager) Reconnect(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.state == Connected {
		m.mu.Unlock()
		return Connected, nil
	}
	m.state = Reconnecting
	m.mu.Unlock()

	if m.startDelay > 0 {
		if err := m.sleep(ctx, m.startDelay); err != nil {
			return m.fail(err)
		}
	}

	rec, err := m.store.Get(ctx, m.userID)
	if err != nil {
		// An unavailable store reads as "no persisted handle".
		m.logger.Warn("handle store unavailable", "user", m.userID, "error", err)
		return m.needsConfiguration(err, false)
	}
	if rec == nil {
		// No handle to probe. Invalidate is a no-op for a fresh user and
		// clears a folder config left behind without its handle row.
		m.logger.Info("no persisted handle", "user", m.userID)
		return m.needsConfiguration(nil, true)
	}

	h, err := m.openHandle(rec.Ref)
	if err != nil {
		m.logger.Warn("persisted handle no longer resolves", "user", m.userID, "error", err)
		return m.needsConfiguration(err, true)
	}

	if err := h.Probe(ctx); err != nil {
		m.logger.Warn("handle probe failed", "user", m.userID, "error", err)
		return m.needsConfiguration(err, true)
	}

	return m.connected(ctx, h)
}

// Retry accepts a freshly granted handle, persists it, and reconnects.
// It moves NeedsConfiguration back through Reconnecting on demand.
func (m *Manager) Retry(ctx context.Context, h core.ResourceHandle) (State, error) {
	m.mu.Lock()
	m.state = Reconnecting
	m.handle = nil
	m.mu.Unlock()

	if err := h.Probe(ctx); err != nil {
		if core.KindOf(err) == core.KindUserCancelled {
			// Dismissed grant prompt: back to NeedsConfiguration, silently.
			m.logger.Debug("grant cancelled by user", "user", m.userID)
			return m.needsConfiguration(err, false)
		}
		m.logger.Warn("granted handle failed probe", "user", m.userID, "error", err)
		return m.needsConfiguration(err, false)
	}

	if err := m.store.Save(ctx, m.userID, h.Ref()); err != nil {
		m.logger.Warn("persisting granted handle failed", "user", m.userID, "error", err)
		// The session can still use the handle; only persistence is degraded.
	}

	return m.connected(ctx, h)
}

func (m *Manager) connected(ctx context.Context, h core.ResourceHandle) (State, error) {
	if err := m.store.Touch(ctx, m.userID, m.clock.Now()); err != nil {
		m.logger.Warn("refreshing folder config failed", "user", m.userID, "error", err)
	}

	m.mu.Lock()
	m.state = Connected
	m.handle = h
	m.lastErr = nil
	m.mu.Unlock()

	m.logger.Info("session connected", "user", m.userID)
	return Connected, nil
}

// needsConfiguration records the failure and, when a folder config exists,
// invalidates it so the next attempt starts clean.
func (m *Manager) needsConfiguration(cause error, invalidate bool) (State, error) {
	if invalidate {
		if err := m.store.Invalidate(context.Background(), m.userID); err != nil {
			m.logger.Warn("invalidating folder config failed", "user", m.userID, "error", err)
		}
	}

	m.mu.Lock()
	m.state = NeedsConfiguration
	m.handle = nil
	m.lastErr = cause
	m.mu.Unlock()

	return NeedsConfiguration, nil
}

func (m *Manager) fail(err error) (State, error) {
	m.mu.Lock()
	m.state = NeedsConfiguration
	m.handle = nil
	m.lastErr = err
	m.mu.Unlock()
	return NeedsConfiguration, err
}
