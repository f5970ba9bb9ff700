package handle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"debtman/internal/core"
)

// HandleTypeDirectory identifies filesystem-rooted handles in persisted refs.
const HandleTypeDirectory = "directory"

// probeFileName is the scratch file written during the write-permission probe.
const probeFileName = ".dm-probe"

// DirectoryHandle is the filesystem implementation of core.ResourceHandle.
// It grants access to everything under a root directory; callers address
// files by slash-separated paths relative to that root.
type DirectoryHandle struct {
	root string
}

// NewDirectoryHandle creates a handle rooted at the given path. The root
// must already exist; granting access to a missing directory is a stale
// handle by definition.
func NewDirectoryHandle(root string) (*DirectoryHandle, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving handle root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewError(core.KindStaleHandle, "handle.open", err)
		}
		return nil, fmt.Errorf("stat handle root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("handle root is not a directory: %s", abs)
	}

	return &DirectoryHandle{root: abs}, nil
}

// Probe verifies the grant is still live and writable: the root must stat as
// a directory, enumerate, and accept a scratch write.
func (h *DirectoryHandle) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(h.root)
	if err != nil {
		return mapFSError("handle.probe", err)
	}
	if !info.IsDir() {
		return core.NewError(core.KindStaleHandle, "handle.probe",
			fmt.Errorf("root is no longer a directory: %s", h.root))
	}

	// Liveness: the directory must enumerate, even if empty.
	if _, err := os.ReadDir(h.root); err != nil {
		return mapFSError("handle.probe", err)
	}

	// Write permission: create and remove a scratch file.
	probePath := filepath.Join(h.root, probeFileName)
	if err := os.WriteFile(probePath, []byte("probe"), 0644); err != nil {
		return mapFSError("handle.probe", err)
	}
	if err := os.Remove(probePath); err != nil {
		return mapFSError("handle.probe", err)
	}

	return nil
}

func (h *DirectoryHandle) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := h.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, mapFSError("handle.read", err)
	}
	return data, nil
}

// WriteFile atomically replaces name with data using a temp file + rename in
// the destination directory.
func (h *DirectoryHandle) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := h.resolve(name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(abs)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return mapFSError("handle.write", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return mapFSError("handle.write", err)
	}
	if err := tmpFile.Close(); err != nil {
		return mapFSError("handle.write", err)
	}

	if err := os.Rename(tmpPath, abs); err != nil {
		return mapFSError("handle.write", err)
	}

	success = true
	return nil
}

func (h *DirectoryHandle) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := h.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, mapFSError("handle.list", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (h *DirectoryHandle) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := h.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return mapFSError("handle.remove", err)
	}
	return nil
}

func (h *DirectoryHandle) RemoveAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := h.resolve(dir)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return mapFSError("handle.remove_all", err)
	}
	return nil
}

func (h *DirectoryHandle) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := h.resolve(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return mapFSError("handle.ensure_dir", err)
	}
	return nil
}

func (h *DirectoryHandle) Ref() core.HandleRef {
	return core.HandleRef{Type: HandleTypeDirectory, Root: h.root}
}

// resolve joins name onto the root and rejects paths escaping it.
func (h *DirectoryHandle) resolve(name string) (string, error) {
	abs := filepath.Join(h.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(h.root, abs)
	if err != nil || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("path escapes handle root: %s", name)
	}
	return abs, nil
}

// mapFSError classifies filesystem failures into storage error kinds.
// Missing paths mean the grant went stale; permission refusals keep their
// own kind so the retry policy can treat them differently.
func mapFSError(op string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return core.NewError(core.KindStaleHandle, op, err)
	case errors.Is(err, fs.ErrPermission):
		return core.NewError(core.KindPermissionDenied, op, err).
			WithSuggestions("select a folder with write permission", "check the folder still exists")
	default:
		return core.NewError(core.KindTransient, op, err)
	}
}

// Compile-time check that DirectoryHandle implements core.ResourceHandle
var _ core.ResourceHandle = (*DirectoryHandle)(nil)
