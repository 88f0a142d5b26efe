// Package dylib unifies the OS dynamic-library primitives (dlopen on
// Unix-likes, LoadLibrary on Windows) behind one API. Platform selection
// happens at compile time via build tags.
package dylib

import "errors"

// ErrUnsupported is returned on platforms without a dynamic-library
// primitive this package knows how to drive.
var ErrUnsupported = errors.New("dylib: unsupported platform")

// Handle is an opened dynamic library.
type Handle struct {
	ref  uintptr
	path string
}

// Path returns the file the handle was opened from.
func (h *Handle) Path() string {
	return h.path
}

// cstring returns a NUL-terminated byte buffer for passing to C.
func cstring(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
