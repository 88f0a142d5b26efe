//go:build darwin || freebsd || linux

package mexec

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Supported reports whether executable mappings are available.
func Supported() bool {
	return true
}

// Map copies code into a fresh executable mapping.
func Map(code []byte) (*Region, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("mexec: empty code")
	}
	size := alignUp(len(code), os.Getpagesize())

	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mexec: mmap %d bytes: %w", size, err)
	}
	copy(mem, code)

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("mexec: mprotect: %w", err)
	}
	return &Region{mem: mem, size: len(code)}, nil
}

// Release unmaps the region. Any addresses taken from it become invalid.
func (r *Region) Release() error {
	if r.mem == nil {
		return nil
	}
	mem := r.mem
	r.mem = nil
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("mexec: munmap: %w", err)
	}
	return nil
}
