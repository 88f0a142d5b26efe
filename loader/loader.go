package loader

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evolvkit/native-runtime/errors"
	"github.com/evolvkit/native-runtime/loader/internal/dylib"
	"github.com/evolvkit/native-runtime/loader/internal/mexec"
	"github.com/evolvkit/native-runtime/native"
)

// Stats counts loader activity since construction.
type Stats struct {
	Loaded       int
	TotalLoads   uint64
	TotalUnloads uint64
	FailedLoads  uint64
}

// Loader owns the module table: it resolves module names to container
// files, maps and initializes them, tracks reference counts, and
// resolves symbols across loaded modules.
//
// All table bookkeeping happens under a single lock, but native code is
// never run while holding it: dynamic library opens, lifecycle entry
// points, resolver entry points, and library closes all execute in
// unlocked windows, with the record parked in a transitional state. A
// module whose init entry calls back into the loader therefore loads
// other modules instead of deadlocking; a re-entrant load of the module
// itself reports a dependency cycle. Thread-safe.
type Loader struct {
	mu     sync.Mutex
	opts   Options
	table  map[string]*record
	order  []string // load order, for global symbol resolution
	stats  Stats
	closed bool
}

// New creates a loader with the given options. Zero-value option fields
// fall back to their defaults.
func New(opts Options) *Loader {
	if len(opts.SearchPaths) == 0 {
		opts.SearchPaths = defaultSearchPaths()
	}
	return &Loader{
		opts:  opts,
		table: make(map[string]*record),
	}
}

// NewWithDefaults creates a loader with default options.
func NewWithDefaults() *Loader {
	return New(DefaultOptions())
}

// Options returns the loader configuration.
func (l *Loader) Options() Options {
	return l.opts
}

// Load brings the named module and its dependency closure to Ready.
// Loading an already-Ready module increments its reference count.
func (l *Loader) Load(name string) (Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Info{}, errors.New(errors.PhaseLoad, errors.KindWrongState).
			Module(name).Detail("loader is closed").Build()
	}

	rec, err := l.loadLocked(name)
	if err != nil {
		return Info{}, err
	}
	return rec.info(), nil
}

func (l *Loader) loadLocked(name string) (*record, error) {
	if rec, ok := l.table[name]; ok {
		switch rec.state {
		case StateReady:
			rec.refCount++
			rec.touch()
			return rec, nil
		case StateError:
			return nil, errors.New(errors.PhaseLoad, errors.KindAlreadyInError).
				Module(name).Cause(rec.failure).Build()
		case StateLoading, StateLoaded, StateInitializing:
			return nil, errors.New(errors.PhaseLoad, errors.KindDependencyFailed).
				Module(name).Detail("dependency cycle").Build()
		default:
			return nil, errors.New(errors.PhaseLoad, errors.KindWrongState).
				Module(name).Detail("module is %s", rec.state).Build()
		}
	}

	if len(l.table) >= l.opts.maxModules() {
		l.stats.FailedLoads++
		return nil, errors.New(errors.PhaseLoad, errors.KindCapacityExceeded).
			Module(name).Detail("table holds %d modules", len(l.table)).Build()
	}

	path, ok := l.probe(name)
	if !ok {
		l.stats.FailedLoads++
		return nil, errors.PathNotFound(name)
	}

	mod, err := native.ReadFile(path)
	if err != nil {
		l.stats.FailedLoads++
		return nil, errors.New(errors.PhaseLoad, errors.KindFormatInvalid).
			Module(name).Cause(err).Build()
	}

	manifest, err := readManifest(path)
	if err != nil {
		l.stats.FailedLoads++
		return nil, err
	}
	for _, dep := range manifest.Dependencies {
		if err := mod.AddDependency(dep); err != nil {
			l.stats.FailedLoads++
			return nil, err
		}
	}

	rec := &record{
		name:     name,
		path:     path,
		state:    StateLoading,
		module:   mod,
		manifest: manifest,
	}
	l.table[name] = rec
	l.order = append(l.order, name)

	Logger().Debug("loading module",
		zap.String("module", name),
		zap.String("path", path),
		zap.Strings("dependencies", manifest.Dependencies))

	// Dependencies first: each recursive load takes its own reference,
	// released again if this load fails later.
	var loadedDeps []string
	for _, dep := range mod.Dependencies() {
		if _, err := l.loadLocked(dep); err != nil {
			return nil, l.failLocked(rec, loadedDeps,
				errors.DependencyFailed(name, dep, err))
		}
		loadedDeps = append(loadedDeps, dep)
	}

	rec.state = StateLoaded

	if l.opts.MapExecutable && mexec.Supported() && len(mod.Code()) > 0 {
		if host, ok := native.HostArchitecture(); ok && host == mod.Header().Architecture {
			region, err := mexec.Map(mod.Code())
			if err != nil {
				Logger().Warn("code section not mapped executable",
					zap.String("module", name), zap.Error(err))
			} else {
				rec.exec = region
			}
		}
	}

	if dylib.Supported() {
		libPath := strings.TrimSuffix(path, ".native") + dylib.Extension()
		if fileExists(libPath) {
			// Library constructors may call back into the loader.
			l.mu.Unlock()
			lib, openErr := openLibrary(libPath)
			l.mu.Lock()
			if openErr != nil {
				return nil, l.failLocked(rec, loadedDeps,
					errors.New(errors.PhaseLoad, errors.KindInitFailed).
						Module(name).Detail("open %s", libPath).Cause(openErr).Build())
			}
			rec.lib = lib
			rec.getFn = lib.Lookup(symbolGetFunction)
		}
	}

	rec.state = StateInitializing
	if err := l.runEntry(rec, symbolInit); err != nil {
		return nil, l.failLocked(rec, loadedDeps, err)
	}
	if err := l.runEntry(rec, symbolMain); err != nil {
		return nil, l.failLocked(rec, loadedDeps, err)
	}

	// The loader may have been closed during an unlocked window; its
	// Close released every record it could see, so just drop whatever
	// this attempt picked up afterwards.
	if l.closed {
		l.mu.Unlock()
		rec.release()
		l.mu.Lock()
		return nil, errors.New(errors.PhaseLoad, errors.KindWrongState).
			Module(name).Detail("loader closed during load").Build()
	}

	now := time.Now()
	rec.state = StateReady
	rec.refCount = 1
	rec.generation = 1
	rec.loadedAt = now
	rec.lastAccess = now
	l.stats.TotalLoads++

	Logger().Info("module ready",
		zap.String("module", name),
		zap.String("path", path),
		zap.Int("exports", len(mod.Exports())))
	return rec, nil
}

// runEntry invokes one of the optional lifecycle entry points. A nonzero
// return from the native side is an initialization failure. Called with
// the table lock held; the entry point itself runs unlocked.
func (l *Loader) runEntry(rec *record, symbol string) error {
	if rec.lib == nil {
		return nil
	}
	fn := rec.lib.Lookup(symbol)
	if fn == 0 {
		return nil
	}
	l.mu.Unlock()
	ret, err := callEntry(fn)
	l.mu.Lock()
	if err != nil {
		return errors.New(errors.PhaseLoad, errors.KindInitFailed).
			Module(rec.name).Symbol(symbol).Cause(err).Build()
	}
	if ret != 0 {
		return errors.New(errors.PhaseLoad, errors.KindInitFailed).
			Module(rec.name).Symbol(symbol).
			Detail("returned %d", int64(ret)).Build()
	}
	return nil
}

// failLocked records a load failure: the attempt's OS resources are
// released and its dependency references dropped, then the record stays
// in the table in Error state so later loads see AlreadyInErrorState.
func (l *Loader) failLocked(rec *record, loadedDeps []string, cause error) error {
	// Closing the library runs its destructors.
	l.mu.Unlock()
	rec.release()
	l.mu.Lock()
	for i := len(loadedDeps) - 1; i >= 0; i-- {
		if err := l.unloadLocked(loadedDeps[i]); err != nil {
			Logger().Warn("release dependency after failed load",
				zap.String("module", rec.name),
				zap.String("dependency", loadedDeps[i]),
				zap.Error(err))
		}
	}
	rec.state = StateError
	rec.failure = cause
	l.stats.FailedLoads++

	Logger().Error("module load failed",
		zap.String("module", rec.name), zap.Error(cause))
	return cause
}

// Unload drops one reference to a Ready module. When the last reference
// goes, the module's cleanup entry point runs, its resources are
// released, its dependency references are dropped, and the record is
// removed.
func (l *Loader) Unload(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unloadLocked(name)
}

func (l *Loader) unloadLocked(name string) error {
	rec, ok := l.table[name]
	if !ok {
		return errors.New(errors.PhaseLoad, errors.KindModuleNotFound).
			Module(name).Build()
	}
	if rec.state != StateReady {
		return errors.New(errors.PhaseLoad, errors.KindWrongState).
			Module(name).Detail("module is %s", rec.state).Build()
	}

	rec.refCount--
	if rec.refCount > 0 {
		return nil
	}

	rec.state = StateUnloading

	// The cleanup entry point and the library's destructors may call
	// back into the loader. Concurrent operations on this module see
	// StateUnloading and are refused.
	var cleanup uintptr
	if rec.lib != nil {
		cleanup = rec.lib.Lookup(symbolCleanup)
	}
	l.mu.Unlock()
	if cleanup != 0 {
		if _, err := callEntry(cleanup); err != nil {
			Logger().Warn("module cleanup failed",
				zap.String("module", name), zap.Error(err))
		}
	}
	rec.release()
	l.mu.Lock()

	deps := rec.module.Dependencies()
	l.removeLocked(name)
	l.stats.TotalUnloads++

	for i := len(deps) - 1; i >= 0; i-- {
		if err := l.unloadLocked(deps[i]); err != nil {
			Logger().Warn("release dependency",
				zap.String("module", name),
				zap.String("dependency", deps[i]),
				zap.Error(err))
		}
	}

	Logger().Info("module unloaded", zap.String("module", name))
	return nil
}

func (l *Loader) removeLocked(name string) {
	delete(l.table, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// ResolveSymbol resolves a symbol within one Ready module: the
// container's export table first, then the module's own resolver entry
// point, then the dynamic library's symbol table.
func (l *Loader) ResolveSymbol(module, symbol string) (uintptr, bool) {
	l.mu.Lock()
	rec, ok := l.table[module]
	if !ok || rec.state != StateReady {
		l.mu.Unlock()
		return 0, false
	}
	addr, found, getFn, lib := l.resolveLocked(rec, symbol)
	l.mu.Unlock()

	if found {
		return addr, true
	}
	return resolveFallback(getFn, lib, symbol)
}

// resolveLocked resolves against the container's export table and hands
// back the record's resolver entry point and library for the unlocked
// fallback.
func (l *Loader) resolveLocked(rec *record, symbol string) (uintptr, bool, uintptr, dynamicLibrary) {
	rec.touch()

	if e, ok := rec.module.FindExport(symbol); ok {
		if e.Kind == native.ExportFunction {
			if rec.exec != nil {
				if addr := rec.exec.Addr(e.Offset); addr != nil {
					return uintptr(addr), true, 0, nil
				}
			}
			// Function exports without an executable mapping fall
			// through to the dynamic library.
		} else if addr, ok := rec.module.ExportAddress(symbol); ok {
			return uintptr(addr), true, 0, nil
		}
	}
	return 0, false, rec.getFn, rec.lib
}

// resolveFallback consults a module's resolver entry point, then the
// library's symbol table. Both run native code; the caller must not
// hold the table lock.
func resolveFallback(getFn uintptr, lib dynamicLibrary, symbol string) (uintptr, bool) {
	if getFn != 0 {
		if addr, err := callResolve(getFn, symbol); err == nil && addr != 0 {
			return addr, true
		}
	}
	if lib != nil {
		if addr := lib.Lookup(symbol); addr != 0 {
			return addr, true
		}
	}
	return 0, false
}

// ResolveSymbolGlobal resolves a symbol across all Ready modules in
// load order and reports which module provided it. Container exports
// are scanned first under the lock; resolver entry points run after it
// is released, still in load order.
func (l *Loader) ResolveSymbolGlobal(symbol string) (uintptr, string, bool) {
	type fallback struct {
		name  string
		getFn uintptr
		lib   dynamicLibrary
	}
	var fallbacks []fallback

	l.mu.Lock()
	for _, name := range l.order {
		rec := l.table[name]
		if rec.state != StateReady {
			continue
		}
		addr, found, getFn, lib := l.resolveLocked(rec, symbol)
		if found {
			l.mu.Unlock()
			return addr, name, true
		}
		if getFn != 0 || lib != nil {
			fallbacks = append(fallbacks, fallback{name, getFn, lib})
		}
	}
	l.mu.Unlock()

	for _, f := range fallbacks {
		if addr, ok := resolveFallback(f.getFn, f.lib, symbol); ok {
			return addr, f.name, true
		}
	}
	return 0, "", false
}

// Generation returns the module's swap generation, 0 when not loaded.
// It increments on every successful HotSwap, so cached symbol addresses
// can be invalidated by comparing generations.
func (l *Loader) Generation(name string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.table[name]; ok {
		return rec.generation
	}
	return 0
}

// Module returns the decoded container of a loaded module.
func (l *Loader) Module(name string) (*native.Module, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.table[name]; ok && rec.state == StateReady {
		return rec.module, true
	}
	return nil, false
}

// Info returns a snapshot of one module record.
func (l *Loader) Info(name string) (Info, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.table[name]; ok {
		return rec.info(), true
	}
	return Info{}, false
}

// Modules returns snapshots of all records in load order.
func (l *Loader) Modules() []Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	infos := make([]Info, 0, len(l.order))
	for _, name := range l.order {
		infos = append(infos, l.table[name].info())
	}
	return infos
}

// Stats returns loader counters.
func (l *Loader) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.stats
	s.Loaded = len(l.table)
	return s
}

// ClearError removes an Error-state record so the module can be loaded
// again. Reports whether a record was cleared.
func (l *Loader) ClearError(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.table[name]
	if !ok || rec.state != StateError {
		return false
	}
	rec.release()
	l.removeLocked(name)
	return true
}

// Close force-unloads every module in reverse load order, ignoring
// reference counts, and shuts the loader down.
func (l *Loader) Close() error {
	l.mu.Lock()
	records := make([]*record, 0, len(l.order))
	for i := len(l.order) - 1; i >= 0; i-- {
		records = append(records, l.table[l.order[i]])
	}
	l.table = make(map[string]*record)
	l.order = nil
	l.closed = true
	l.mu.Unlock()

	// Cleanup entry points and library destructors run after the table
	// is already empty, so callbacks into the loader see a closed one.
	for _, rec := range records {
		if rec.state == StateReady && rec.lib != nil {
			if fn := rec.lib.Lookup(symbolCleanup); fn != 0 {
				if _, err := callEntry(fn); err != nil {
					Logger().Warn("module cleanup failed",
						zap.String("module", rec.name), zap.Error(err))
				}
			}
		}
		rec.release()
	}
	return nil
}

// probe resolves a module name to a container path. Names carrying a
// path separator or the container extension are taken as paths; bare
// names are probed across the search directories, first match wins.
func (l *Loader) probe(name string) (string, bool) {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, os.PathSeparator) ||
		strings.HasSuffix(name, ".native") {
		if fileExists(name) {
			return name, true
		}
		return "", false
	}

	host, hostKnown := native.HostArchitecture()
	for _, dir := range l.opts.SearchPaths {
		candidates := []string{filepath.Join(dir, name+".native")}
		if hostKnown {
			candidates = append(candidates, filepath.Join(dir, native.FileName(name, host)))
		}
		for _, c := range candidates {
			if fileExists(c) {
				return c, true
			}
		}
	}
	return "", false
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
