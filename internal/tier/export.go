package tier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"debtman/internal/core"
)

var errNoLiveHandle = errors.New("no live directory handle")

// ExportTier is the forced-download tier: when the primary handle is gone or
// exhausted its retries, the payload is saved as a plain file the user can
// pick up, the way a browser download lands in a downloads folder.
type ExportTier struct {
	dir string
}

// NewExportTier creates an export tier writing into dir.
func NewExportTier(dir string) *ExportTier {
	return &ExportTier{dir: dir}
}

func (t *ExportTier) Name() string { return "export" }

func (t *ExportTier) Available(ctx context.Context) bool {
	return t.dir != ""
}

// Persist writes the payload under the export directory. The export area is a
// single flat folder of saved files, so nested tier filenames are flattened to
// one segment keeping the full relative path. Payloads for different users
// land in distinct files.
func (t *ExportTier) Persist(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.dir == "" {
		return core.NewError(core.KindCapabilityUnavailable, "tier.export",
			errors.New("no export directory configured"))
	}

	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	dest := filepath.Join(t.dir, flatName(filename))
	tmp, err := os.CreateTemp(t.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating export temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("finalizing export file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that ExportTier implements core.StorageTier
var _ core.StorageTier = (*ExportTier)(nil)
