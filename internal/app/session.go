package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"debtman/internal/config"
	"debtman/internal/core"
	"debtman/internal/document"
	"debtman/internal/handle"
	"debtman/internal/handlestore"
	"debtman/internal/integrity"
	"debtman/internal/kvcache"
	"debtman/internal/probe"
	"debtman/internal/reconnect"
	"debtman/internal/tier"
)

// Session is the fully wired storage core for one user. Each active user
// gets their own instance; nothing here is process-global.
type Session struct {
	cfg       *config.Config
	userID    string
	caps      core.Capabilities
	store     core.HandleStore
	db        *sql.DB
	cache     core.KVCache
	manager   *reconnect.Manager
	validator *integrity.Validator
	repairer  *integrity.Repairer
	docs      *document.Store
	logger    core.Logger
	logFile   *os.File
}

// NewSession creates a session for userID from the given config.
// The caller must call Close when done.
func NewSession(cfg *config.Config, userID string) (*Session, error) {
	cfg.ApplyDefaults()

	sessionID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, sessionID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	clock := core.RealClock{}
	caps := probe.New().Detect()
	if !caps.DirectoryAccessSupported {
		logger.Warn("directory access unsupported, falling back to weaker tiers")
	}

	store, db, err := handlestore.NewStoreFromConfig(cfg.Store, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating handle store: %w", err)
	}

	cache, err := kvcache.NewCacheFromConfig(cfg.Cache, db, clock)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	manager := reconnect.NewManager(userID, store, logger, clock,
		reconnect.WithStartDelay(time.Duration(cfg.Reconnect.StartDelayMS)*time.Millisecond))

	tiers, err := tier.NewTiersFromConfig(cfg.Tiers, cfg.Retry, manager, cache, cfg.Cache.MaxValueBytes, nil)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating storage tiers: %w", err)
	}
	coordinator := tier.NewCoordinator(tiers, logger)

	validator := integrity.NewValidatorForUser(clock, userID)
	repairer := integrity.NewRepairer(userID, clock, core.UUIDGenerator{}, logger)

	docs := document.NewStore(userID, manager, coordinator, cache,
		validator, repairer, logger, clock, cfg.Backups.Retain)

	return &Session{
		cfg:       cfg,
		userID:    userID,
		caps:      caps,
		store:     store,
		db:        db,
		cache:     cache,
		manager:   manager,
		validator: validator,
		repairer:  repairer,
		docs:      docs,
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// Capabilities reports what the host environment supports.
func (s *Session) Capabilities() core.Capabilities { return s.caps }

// Reconnect restores the session from the persisted handle.
func (s *Session) Reconnect(ctx context.Context) (reconnect.State, error) {
	return s.manager.Reconnect(ctx)
}

// Configure grants a new data folder: the chosen directory becomes the
// session's handle, persisted for future reconnection.
func (s *Session) Configure(ctx context.Context, root string) (reconnect.State, error) {
	h, err := handle.NewDirectoryHandle(root)
	if err != nil {
		return s.manager.State(), fmt.Errorf("opening data folder: %w", err)
	}
	return s.manager.Retry(ctx, h)
}

// SessionStatus describes the session for status surfaces.
type SessionStatus struct {
	State        reconnect.State
	Capabilities core.Capabilities
	FolderConfig *core.FolderConfig
	LastError    error
	Suggestions  []string
}

// Status reports the current connection state and folder configuration.
func (s *Session) Status(ctx context.Context) (*SessionStatus, error) {
	cfg, err := s.store.Config(ctx, s.userID)
	if err != nil {
		// An unavailable store reads as unconfigured, not fatal.
		s.logger.Warn("reading folder config failed", "user", s.userID, "error", err)
		cfg = nil
	}

	lastErr := s.manager.LastError()
	return &SessionStatus{
		State:        s.manager.State(),
		Capabilities: s.caps,
		FolderConfig: cfg,
		LastError:    lastErr,
		Suggestions:  core.SuggestionsOf(lastErr),
	}, nil
}

// Load reads the user's document.
func (s *Session) Load(ctx context.Context) (*core.Document, error) {
	return s.docs.Load(ctx)
}

// Save persists the user's document through the tier coordinator.
func (s *Session) Save(ctx context.Context, doc *core.Document) error {
	return s.docs.Save(ctx, doc)
}

// Validate loads the document and runs the integrity check without repairing.
func (s *Session) Validate(ctx context.Context) (integrity.ValidationResult, error) {
	doc, err := s.docs.Load(ctx)
	if err != nil {
		return integrity.ValidationResult{}, err
	}
	return s.validator.Validate(doc), nil
}

// Repair loads the document, applies every safe repair, re-validates, and
// persists the result when it comes back clean.
func (s *Session) Repair(ctx context.Context) (integrity.ValidationResult, error) {
	doc, err := s.docs.Load(ctx)
	if err != nil {
		return integrity.ValidationResult{}, err
	}
	return s.docs.ValidateAndRepair(ctx, doc), nil
}

// Export writes the full dataset as a dated download-style file and returns
// its name.
func (s *Session) Export(ctx context.Context) (string, error) {
	doc, err := s.docs.Load(ctx)
	if err != nil {
		return "", err
	}
	return s.docs.Export(ctx, doc)
}

// Reset destroys the user's stored data: the data folder contents, the
// persisted handle, and the folder config. The next session starts from
// scratch.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.docs.DestroyData(ctx); err != nil {
		return err
	}
	if err := s.store.Invalidate(ctx, s.userID); err != nil {
		return fmt.Errorf("invalidating folder config: %w", err)
	}
	if err := s.store.Purge(ctx, s.userID); err != nil {
		return fmt.Errorf("purging handle store: %w", err)
	}
	s.logger.Info("session reset", "user", s.userID)
	return nil
}

// Close releases the session's resources.
func (s *Session) Close() error {
	s.docs.Close()

	var firstErr error
	if err := s.cache.Close(); err != nil {
		firstErr = fmt.Errorf("closing cache: %w", err)
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing handle store: %w", err)
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
	return firstErr
}
