//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package dylib

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Supported reports whether dynamic libraries can be opened on this platform.
func Supported() bool {
	return true
}

// Extension returns the platform's shared-library file extension.
func Extension() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

// Open loads the shared library at path.
func Open(path string) (*Handle, error) {
	ref, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("dylib: open %s: %w", path, err)
	}
	return &Handle{ref: ref, path: path}, nil
}

// Lookup resolves a symbol to an address, or 0 if absent.
func (h *Handle) Lookup(symbol string) uintptr {
	addr, err := purego.Dlsym(h.ref, symbol)
	if err != nil {
		return 0
	}
	return addr
}

// Close unloads the library. The handle must not be used afterwards.
func (h *Handle) Close() error {
	if h.ref == 0 {
		return nil
	}
	err := purego.Dlclose(h.ref)
	h.ref = 0
	if err != nil {
		return fmt.Errorf("dylib: close %s: %w", h.path, err)
	}
	return nil
}

// Call invokes a zero-argument entry point and returns its raw result.
// Used for the module_init / module_cleanup / module_main lifecycle symbols.
func Call(fn uintptr) (ret uintptr, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dylib: entry point panicked: %v", r)
		}
	}()
	ret, _, _ = purego.SyscallN(fn)
	return ret, nil
}

// CallResolve invokes a module's own symbol-by-name resolver
// (module_get_function) with a C string argument.
func CallResolve(fn uintptr, name string) (ret uintptr, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dylib: resolver panicked: %v", r)
		}
	}()
	buf := cstring(name)
	ret, _, _ = purego.SyscallN(fn, uintptr(unsafe.Pointer(&buf[0])))
	runtime.KeepAlive(buf)
	return ret, nil
}
