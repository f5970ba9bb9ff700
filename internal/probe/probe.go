// Package probe detects what the host environment supports before any
// storage decision is made. Detection is pure inspection: it never fails and
// unknown always reports as unsupported.
package probe

import (
	"os"
	"path/filepath"
	"sync"

	"debtman/internal/core"
)

// Probe inspects the host once and caches the result for its lifetime.
// Construct one per session; there is no teardown.
type Probe struct {
	once sync.Once
	caps core.Capabilities

	// scratchDir overrides the directory used for the write check. Tests set
	// it; empty means the OS temp directory.
	scratchDir string
}

// New creates a Probe.
func New() *Probe { return &Probe{} }

// NewWithScratchDir creates a Probe that runs its write check in dir.
func NewWithScratchDir(dir string) *Probe { return &Probe{scratchDir: dir} }

// Detect returns the host capabilities. The first call inspects the
// environment; later calls return the cached result.
func (p *Probe) Detect() core.Capabilities {
	p.once.Do(func() {
		p.caps = detect(p.scratchDir)
	})
	return p.caps
}

func detect(scratchDir string) core.Capabilities {
	var caps core.Capabilities

	if scratchDir == "" {
		scratchDir = os.TempDir()
	}

	// Directory access: the host must let us create and remove a scratch
	// file. Sandboxed or read-only hosts fail here.
	scratch := filepath.Join(scratchDir, ".dm-capability-probe")
	if err := os.WriteFile(scratch, []byte("probe"), 0600); err == nil {
		os.Remove(scratch)
		caps.DirectoryAccessSupported = true
	}

	// Permission queries: stat must expose a permission mode we can read.
	if info, err := os.Stat(scratchDir); err == nil && info.Mode().Perm() != 0 {
		caps.PermissionQuerySupported = true
	}

	// A resolvable home directory stands in for a trustworthy context: it is
	// where the handle store and grants persist across sessions.
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		caps.SecureContext = true
	}

	return caps
}
