// Package document reads and writes the single versioned JSON document that
// holds a user's whole dataset, rotating timestamped backups under the
// connected folder and recovering from them when the primary copy is corrupt.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"debtman/internal/core"
	"debtman/internal/integrity"
	"debtman/internal/tier"
)

const (
	dataFileName    = "data.json"
	backupsDirName  = "backups"
	backupPrefix    = "backup_"
	backupTimestamp = "2006-01-02T15-04-05.000Z"

	// LegacyClientCachePrefix keys the flat client-list cache some UI hooks
	// still read directly.
	LegacyClientCachePrefix = "clients_"
)

// DefaultValidationDebounce is how long after a save the integrity check
// runs. Bursts of saves validate once.
const DefaultValidationDebounce = 500 * time.Millisecond

// Store persists one user's document. Saves are serialized: a save fully
// completes, including its backup write attempt, before the next one starts.
type Store struct {
	userID      string
	provider    tier.HandleProvider
	coordinator *tier.Coordinator
	cache       core.KVCache
	validator   *integrity.Validator
	repairer    *integrity.Repairer
	logger      core.Logger
	clock       core.Clock
	retain      int
	debounce    time.Duration

	mu         sync.Mutex
	timerMu    sync.Mutex
	timer      *time.Timer
	pendingDoc *core.Document
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithValidationDebounce overrides the post-save validation delay.
func WithValidationDebounce(d time.Duration) StoreOption {
	return func(s *Store) { s.debounce = d }
}

// NewStore creates a document store for one user session.
func NewStore(userID string, provider tier.HandleProvider, coordinator *tier.Coordinator, cache core.KVCache, validator *integrity.Validator, repairer *integrity.Repairer, logger core.Logger, clock core.Clock, retain int, opts ...StoreOption) *Store {
	s := &Store{
		userID:      userID,
		provider:    provider,
		coordinator: coordinator,
		cache:       cache,
		validator:   validator,
		repairer:    repairer,
		logger:      logger,
		clock:       clock,
		retain:      retain,
		debounce:    DefaultValidationDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) userDir() string    { return path.Join("user_data", s.userID) }
func (s *Store) dataPath() string   { return path.Join(s.userDir(), dataFileName) }
func (s *Store) backupsDir() string { return path.Join(s.userDir(), backupsDirName) }

// Load reads the user's document from the connected folder. A missing file
// yields a fresh empty document; a corrupt one triggers backup recovery.
func (s *Store) Load(ctx context.Context) (*core.Document, error) {
	h := s.provider.Handle()
	if h == nil {
		return nil, core.NewError(core.KindCapabilityUnavailable, "document.load",
			errors.New("no connected folder"))
	}

	raw, err := h.ReadFile(ctx, s.dataPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("no document yet, starting fresh", "user", s.userID)
			return core.NewDocument(s.userID, s.clock.Now()), nil
		}
		return nil, fmt.Errorf("reading document: %w", err)
	}

	doc, err := s.decode(raw)
	if err != nil {
		if core.KindOf(err) == core.KindCorruptionDetected {
			s.logger.Warn("document corrupt, recovering from backups", "user", s.userID, "error", err)
			return s.recoverFromBackups(ctx, h)
		}
		return nil, err
	}

	return doc, nil
}

// decode gates raw bytes through the structural schema, unmarshals, and
// hard-rejects documents owned by another user.
func (s *Store) decode(raw []byte) (*core.Document, error) {
	if err := integrity.CheckRaw(raw); err != nil {
		return nil, err
	}

	var doc core.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, core.NewError(core.KindCorruptionDetected, "document.decode", err)
	}

	if doc.Metadata.UserID != s.userID {
		return nil, core.NewError(core.KindValidationFailed, "document.decode",
			fmt.Errorf("document belongs to user %q, session is %q", doc.Metadata.UserID, s.userID))
	}

	return &doc, nil
}

// recoverFromBackups scans backups newest-first and returns the first one
// that decodes and validates. With no usable backup the user starts fresh.
func (s *Store) recoverFromBackups(ctx context.Context, h core.ResourceHandle) (*core.Document, error) {
	names, err := s.listBackups(ctx, h)
	if err != nil {
		s.logger.Warn("listing backups failed", "user", s.userID, "error", err)
		names = nil
	}

	// listBackups returns oldest-first; walk from the newest.
	for i := len(names) - 1; i >= 0; i-- {
		raw, err := h.ReadFile(ctx, path.Join(s.backupsDir(), names[i]))
		if err != nil {
			s.logger.Warn("reading backup failed", "backup", names[i], "error", err)
			continue
		}

		doc, err := s.decode(raw)
		if err != nil {
			s.logger.Warn("backup unusable", "backup", names[i], "error", err)
			continue
		}

		if result := s.validator.Validate(doc); !result.IsValid {
			s.logger.Warn("backup failed validation", "backup", names[i],
				"errors", len(result.Errors))
			continue
		}

		s.logger.Info("recovered document from backup", "user", s.userID, "backup", names[i])
		return doc, nil
	}

	s.logger.Warn("no usable backup, starting fresh", "user", s.userID)
	return core.NewDocument(s.userID, s.clock.Now()), nil
}

// Save persists the document: stamps metadata, writes the primary file
// through the tier coordinator, rotates a timestamped backup, prunes old
// backups, and refreshes the legacy client-list cache. Saves for one user
// are fully serialized. A backup failure does not fail the save; primary
// success is sufficient.
func (s *Store) Save(ctx context.Context, doc *core.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.Metadata.UserID != "" && doc.Metadata.UserID != s.userID {
		return core.NewError(core.KindValidationFailed, "document.save",
			fmt.Errorf("document belongs to user %q, session is %q", doc.Metadata.UserID, s.userID))
	}

	doc.Metadata.UserID = s.userID
	if doc.Metadata.Version == "" {
		doc.Metadata.Version = core.DocumentVersion
	}
	doc.Metadata.LastModifiedAt = s.clock.Now()
	doc.Metadata.BackupCount++

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if ok := s.coordinator.Persist(ctx, s.dataPath(), data); !ok {
		return core.NewError(core.KindStorageUnavailable, "document.save",
			errors.New("every storage tier failed"))
	}

	s.writeBackup(ctx, data)
	s.refreshClientCache(ctx, doc)
	s.scheduleValidation(doc)

	return nil
}

// writeBackup rotates a timestamped copy and prunes beyond the retention
// count. Failures are logged, never fatal.
func (s *Store) writeBackup(ctx context.Context, data []byte) {
	h := s.provider.Handle()
	if h == nil {
		s.logger.Warn("skipping backup, no connected folder", "user", s.userID)
		return
	}

	if err := h.EnsureDir(ctx, s.backupsDir()); err != nil {
		s.logger.Warn("creating backups directory failed", "user", s.userID, "error", err)
		return
	}

	name := backupPrefix + s.clock.Now().UTC().Format(backupTimestamp) + ".json"
	if err := h.WriteFile(ctx, path.Join(s.backupsDir(), name), data); err != nil {
		s.logger.Warn("backup write failed", "user", s.userID, "error", err)
		return
	}

	s.pruneBackups(ctx, h)
}

// pruneBackups keeps only the newest retained backups.
func (s *Store) pruneBackups(ctx context.Context, h core.ResourceHandle) {
	names, err := s.listBackups(ctx, h)
	if err != nil {
		s.logger.Warn("listing backups for pruning failed", "user", s.userID, "error", err)
		return
	}

	// Oldest first; everything before the retention window goes.
	for i := 0; i < len(names)-s.retain; i++ {
		if err := h.Remove(ctx, path.Join(s.backupsDir(), names[i])); err != nil {
			s.logger.Warn("pruning backup failed", "backup", names[i], "error", err)
		}
	}
}

// listBackups returns backup file names sorted oldest-first. The timestamp
// format sorts lexically.
func (s *Store) listBackups(ctx context.Context, h core.ResourceHandle) ([]string, error) {
	entries, err := h.List(ctx, s.backupsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e, backupPrefix) && strings.HasSuffix(e, ".json") {
			names = append(names, e)
		}
	}
	sort.Strings(names)
	return names, nil
}

// refreshClientCache maintains the flat per-user client list some UI hooks
// read straight from the cache.
func (s *Store) refreshClientCache(ctx context.Context, doc *core.Document) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(doc.Clients)
	if err != nil {
		s.logger.Warn("encoding client cache failed", "user", s.userID, "error", err)
		return
	}
	if err := s.cache.Put(ctx, LegacyClientCachePrefix+s.userID, data); err != nil {
		s.logger.Warn("refreshing client cache failed", "user", s.userID, "error", err)
	}
}

// scheduleValidation arms the debounced post-save integrity check. Repeated
// saves within the window validate once, against the latest document.
func (s *Store) scheduleValidation(doc *core.Document) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	s.pendingDoc = doc
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.timerMu.Lock()
		pending := s.pendingDoc
		s.pendingDoc = nil
		s.timerMu.Unlock()
		if pending != nil {
			s.ValidateAndRepair(context.Background(), pending)
		}
	})
}

// ValidateAndRepair runs the integrity check on doc and, when findings allow
// it, repairs and re-persists. Returns the final validation result.
func (s *Store) ValidateAndRepair(ctx context.Context, doc *core.Document) integrity.ValidationResult {
	result := s.validator.Validate(doc)
	if result.IsValid {
		return result
	}

	s.logger.Warn("document failed validation", "user", s.userID,
		"errors", len(result.Errors), "warnings", len(result.Warnings))

	repaired, applied := s.repairer.Repair(doc, result.Errors)
	if len(applied) == 0 {
		return result
	}

	recheck := s.validator.Validate(repaired)
	if !recheck.IsValid {
		s.logger.Warn("repair left unresolved findings", "user", s.userID,
			"errors", len(recheck.Errors))
		return recheck
	}

	if err := s.Save(ctx, repaired); err != nil {
		s.logger.Error("persisting repaired document failed", "user", s.userID, "error", err)
		return recheck
	}

	s.logger.Info("document repaired", "user", s.userID, "repairs", len(applied))
	return recheck
}

// Export writes the full dataset as a dated download-style file through the
// tier coordinator.
func (s *Store) Export(ctx context.Context, doc *core.Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}

	name := ExportFileName(s.clock.Now())
	if ok := s.coordinator.Persist(ctx, name, data); !ok {
		return "", core.NewError(core.KindStorageUnavailable, "document.export",
			errors.New("every storage tier failed"))
	}
	return name, nil
}

// DestroyData removes the user's data area from the connected folder and
// clears their cache entries. Callers pair this with a handle-store purge.
func (s *Store) DestroyData(ctx context.Context) error {
	h := s.provider.Handle()
	if h != nil {
		if err := h.RemoveAll(ctx, s.userDir()); err != nil {
			return fmt.Errorf("removing data folder: %w", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, LegacyClientCachePrefix+s.userID); err != nil {
			s.logger.Warn("clearing client cache failed", "user", s.userID, "error", err)
		}
		if err := s.cache.Delete(ctx, tier.CacheKey(s.dataPath())); err != nil {
			s.logger.Warn("clearing cached document failed", "user", s.userID, "error", err)
		}
	}

	return nil
}

// Close stops the pending validation timer, if armed.
func (s *Store) Close() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pendingDoc = nil
}

// ExportFileName is the dated name used for full-dataset exports.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("debt_manager_data_%s.json", now.UTC().Format("2006-01-02"))
}
