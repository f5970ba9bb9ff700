package handlestore

import (
	"context"
	"sync"
	"time"

	"debtman/internal/core"
)

// MemoryStore is an in-memory implementation of core.HandleStore for tests
// and throwaway sessions. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	clock   core.Clock
	configs map[string]core.FolderConfig
	handles map[string]core.HandleRecord

	// failWith, when non-nil, is returned by every call.
	failWith error
}

// NewMemoryStore creates an empty in-memory handle store.
func NewMemoryStore(clock core.Clock) *MemoryStore {
	return &MemoryStore{
		clock:   clock,
		configs: make(map[string]core.FolderConfig),
		handles: make(map[string]core.HandleRecord),
	}
}

// FailWith makes every subsequent call return err. Pass nil to clear.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryStore) Save(ctx context.Context, userID string, ref core.HandleRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	now := s.clock.Now().UTC()
	s.configs[userID] = core.FolderConfig{
		UserID:       userID,
		FolderName:   ref.Root,
		LastAccessAt: now,
		IsValid:      true,
	}
	s.handles[userID] = core.HandleRecord{UserID: userID, Ref: ref, SavedAt: now}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*core.HandleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	rec, ok := s.handles[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Config(ctx context.Context, userID string) (*core.FolderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	cfg, ok := s.configs[userID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (s *MemoryStore) Invalidate(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	if cfg, ok := s.configs[userID]; ok {
		cfg.IsValid = false
		s.configs[userID] = cfg
	}
	return nil
}

func (s *MemoryStore) Touch(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	if cfg, ok := s.configs[userID]; ok {
		cfg.LastAccessAt = at.UTC()
		s.configs[userID] = cfg
	}
	return nil
}

func (s *MemoryStore) Purge(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	delete(s.configs, userID)
	delete(s.handles, userID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Compile-time check that MemoryStore implements core.HandleStore
var _ core.HandleStore = (*MemoryStore)(nil)
