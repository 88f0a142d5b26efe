//go:build !((darwin || freebsd || linux || windows) && (amd64 || arm64))

package invoke

// Supported reports whether native calls can be made on this platform.
func Supported() bool {
	return false
}

// Func is a native function address wrapped in a typed Go callable.
type Func struct{}

// New binds the native function at addr to the given signature.
func New(addr uintptr, params []Type, ret Type) (*Func, error) {
	return nil, ErrUnsupported
}

// Call invokes the native function.
func (f *Func) Call(args []any) (any, error) {
	return nil, ErrUnsupported
}
