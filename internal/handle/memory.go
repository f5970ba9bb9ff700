package handle

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"debtman/internal/core"
)

// HandleTypeMemory identifies in-memory handles in persisted refs.
const HandleTypeMemory = "memory"

// MemoryHandle is an in-memory implementation of core.ResourceHandle used in
// tests and on hosts without directory access. It can be armed to fail with
// a specific error kind to exercise fallback paths.
// This implementation is safe for concurrent use.
type MemoryHandle struct {
	name  string
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool

	// failProbe/failWrite, when non-nil, are returned by Probe/WriteFile.
	failProbe error
	failWrite error
}

// NewMemoryHandle creates an empty in-memory handle.
func NewMemoryHandle(name string) *MemoryHandle {
	return &MemoryHandle{
		name:  name,
		files: make(map[string][]byte),
		dirs:  map[string]bool{".": true},
	}
}

// FailProbeWith makes every subsequent Probe return err. Pass nil to clear.
func (h *MemoryHandle) FailProbeWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failProbe = err
}

// FailWriteWith makes every subsequent WriteFile return err. Pass nil to clear.
func (h *MemoryHandle) FailWriteWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failWrite = err
}

func (h *MemoryHandle) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.failProbe
}

func (h *MemoryHandle) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, ok := h.files[path.Clean(name)]
	if !ok {
		return nil, fs.ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (h *MemoryHandle) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failWrite != nil {
		return h.failWrite
	}

	clean := path.Clean(name)
	stored := make([]byte, len(data))
	copy(stored, data)
	h.files[clean] = stored

	// Parent directories materialize implicitly.
	for dir := path.Dir(clean); dir != "." && dir != "/"; dir = path.Dir(dir) {
		h.dirs[dir] = true
	}
	return nil
}

func (h *MemoryHandle) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	clean := path.Clean(dir)
	if !h.dirs[clean] {
		return nil, fs.ErrNotExist
	}

	seen := map[string]bool{}
	var names []string
	collect := func(p string) {
		if path.Dir(p) == clean && !seen[path.Base(p)] {
			seen[path.Base(p)] = true
			names = append(names, path.Base(p))
		}
	}
	for f := range h.files {
		collect(f)
	}
	for d := range h.dirs {
		collect(d)
	}
	sort.Strings(names)
	return names, nil
}

func (h *MemoryHandle) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.files, path.Clean(name))
	return nil
}

func (h *MemoryHandle) RemoveAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	clean := path.Clean(dir)
	prefix := clean + "/"
	for f := range h.files {
		if f == clean || strings.HasPrefix(f, prefix) {
			delete(h.files, f)
		}
	}
	for d := range h.dirs {
		if d == clean || strings.HasPrefix(d, prefix) {
			delete(h.dirs, d)
		}
	}
	return nil
}

func (h *MemoryHandle) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	clean := path.Clean(dir)
	for d := clean; d != "." && d != "/"; d = path.Dir(d) {
		h.dirs[d] = true
	}
	return nil
}

func (h *MemoryHandle) Ref() core.HandleRef {
	return core.HandleRef{Type: HandleTypeMemory, Root: h.name}
}

// Compile-time check that MemoryHandle implements core.ResourceHandle
var _ core.ResourceHandle = (*MemoryHandle)(nil)
