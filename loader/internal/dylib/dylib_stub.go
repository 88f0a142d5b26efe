//go:build !((darwin || freebsd || linux || windows) && (amd64 || arm64))

package dylib

// Supported reports whether dynamic libraries can be opened on this platform.
func Supported() bool {
	return false
}

// Extension returns the platform's shared-library file extension.
func Extension() string {
	return ".so"
}

// Open loads the shared library at path.
func Open(path string) (*Handle, error) {
	return nil, ErrUnsupported
}

// Lookup resolves a symbol to an address, or 0 if absent.
func (h *Handle) Lookup(symbol string) uintptr {
	return 0
}

// Close unloads the library.
func (h *Handle) Close() error {
	return nil
}

// Call invokes a zero-argument entry point.
func Call(fn uintptr) (uintptr, error) {
	return 0, ErrUnsupported
}

// CallResolve invokes a module's own symbol-by-name resolver.
func CallResolve(fn uintptr, name string) (uintptr, error) {
	return 0, ErrUnsupported
}
