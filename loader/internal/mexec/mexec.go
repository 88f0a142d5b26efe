// Package mexec copies machine code into page-aligned executable memory so
// that function exports of a native module can actually be called. The
// mapping is created writable, filled, then flipped to read+execute;
// it is never writable and executable at the same time.
package mexec

import (
	"errors"
	"unsafe"
)

// ErrUnsupported is returned on platforms without executable mappings.
var ErrUnsupported = errors.New("mexec: unsupported platform")

// Region is a live executable mapping of a code section.
type Region struct {
	mem  []byte
	size int // bytes of code, <= len(mem)
}

// Base returns the start of the mapping.
func (r *Region) Base() unsafe.Pointer {
	return unsafe.Pointer(&r.mem[0])
}

// Addr returns the address at the given offset into the mapped code.
// Returns nil when the offset is out of range.
func (r *Region) Addr(offset uint64) unsafe.Pointer {
	if offset >= uint64(r.size) {
		return nil
	}
	return unsafe.Pointer(&r.mem[offset])
}

// Size returns the number of code bytes in the region.
func (r *Region) Size() int {
	return r.size
}

func alignUp(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}
