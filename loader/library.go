package loader

import "github.com/evolvkit/native-runtime/loader/internal/dylib"

// dynamicLibrary is an open dynamic library sidecar. *dylib.Handle is
// the production implementation; tests substitute in-process fakes so
// lifecycle behavior can be exercised without building real libraries.
type dynamicLibrary interface {
	Lookup(symbol string) uintptr
	Close() error
}

// Seams over the dylib package. Everything routed through these runs
// foreign code (library constructors, lifecycle entry points, resolver
// entry points), so callers must not hold the table lock.
var (
	openLibrary = func(path string) (dynamicLibrary, error) {
		h, err := dylib.Open(path)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	callEntry   = dylib.Call
	callResolve = dylib.CallResolve
)
