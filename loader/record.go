package loader

import (
	"time"

	"go.uber.org/zap"

	"github.com/evolvkit/native-runtime/loader/internal/mexec"
	"github.com/evolvkit/native-runtime/native"
)

// Lifecycle symbols looked up in a module's dynamic library sidecar.
const (
	symbolInit        = "module_init"
	symbolCleanup     = "module_cleanup"
	symbolMain        = "module_main"
	symbolGetFunction = "module_get_function"
)

// record is the loader's bookkeeping for one loaded module.
type record struct {
	name       string
	path       string
	state      State
	module     *native.Module
	manifest   Manifest
	refCount   int
	generation uint64

	// exec is the executable mapping of the code section, nil when
	// MapExecutable is off or the container targets a foreign arch.
	exec *mexec.Region

	// lib is the open dynamic library sidecar, nil when none exists.
	lib dynamicLibrary

	// getFn is the module_get_function entry point, 0 when absent.
	getFn uintptr

	loadedAt   time.Time
	lastAccess time.Time
	callCount  uint64

	// failure is the recorded error when state is StateError.
	failure error
}

// Info is a point-in-time snapshot of a module record.
type Info struct {
	Name         string
	Path         string
	State        State
	RefCount     int
	Dependencies []string
	LoadedAt     time.Time
	LastAccess   time.Time
	CallCount    uint64
	Swappable    bool
	Generation   uint64
}

// touch marks an access to the record: a fresh Load reference or a
// symbol resolution.
func (r *record) touch() {
	r.lastAccess = time.Now()
	r.callCount++
}

func (r *record) info() Info {
	var deps []string
	if r.module != nil {
		deps = r.module.Dependencies()
	}
	return Info{
		Name:         r.name,
		Path:         r.path,
		State:        r.state,
		RefCount:     r.refCount,
		Dependencies: deps,
		LoadedAt:     r.loadedAt,
		LastAccess:   r.lastAccess,
		CallCount:    r.callCount,
		Swappable:    r.manifest.HotSwappable,
		Generation:   r.generation,
	}
}

// release frees the record's OS resources. Safe to call more than once.
func (r *record) release() {
	if r.exec != nil {
		if err := r.exec.Release(); err != nil {
			Logger().Warn("release exec mapping",
				zap.String("module", r.name), zap.Error(err))
		}
		r.exec = nil
	}
	if r.lib != nil {
		if err := r.lib.Close(); err != nil {
			Logger().Warn("close dynamic library",
				zap.String("module", r.name), zap.Error(err))
		}
		r.lib = nil
	}
	r.getFn = 0
}
