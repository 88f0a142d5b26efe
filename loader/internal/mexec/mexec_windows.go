//go:build windows

package mexec

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
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

	base, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("mexec: VirtualAlloc %d bytes: %w", size, err)
	}
	mem := unsafe.Slice((*byte)(unsafe.Pointer(base)), size)
	copy(mem, code)

	var old uint32
	if err := windows.VirtualProtect(base, uintptr(size), windows.PAGE_EXECUTE_READ, &old); err != nil {
		_ = windows.VirtualFree(base, 0, windows.MEM_RELEASE)
		return nil, fmt.Errorf("mexec: VirtualProtect: %w", err)
	}
	return &Region{mem: mem, size: len(code)}, nil
}

// Release frees the region. Any addresses taken from it become invalid.
func (r *Region) Release() error {
	if r.mem == nil {
		return nil
	}
	base := uintptr(unsafe.Pointer(&r.mem[0]))
	r.mem = nil
	if err := windows.VirtualFree(base, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("mexec: VirtualFree: %w", err)
	}
	return nil
}
