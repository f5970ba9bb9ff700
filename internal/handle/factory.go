package handle

import (
	"fmt"

	"debtman/internal/core"
)

// FromRef reconstructs a live handle from a persisted reference.
func FromRef(ref core.HandleRef) (core.ResourceHandle, error) {
	switch ref.Type {
	case HandleTypeDirectory:
		if ref.Root == "" {
			return nil, fmt.Errorf("directory handle requires a root")
		}
		return NewDirectoryHandle(ref.Root)
	case HandleTypeMemory:
		return NewMemoryHandle(ref.Root), nil
	default:
		return nil, fmt.Errorf("unknown handle type: %q", ref.Type)
	}
}
