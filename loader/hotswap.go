package loader

import (
	"go.uber.org/zap"

	"github.com/evolvkit/native-runtime/errors"
	"github.com/evolvkit/native-runtime/loader/internal/mexec"
	"github.com/evolvkit/native-runtime/native"
)

// HotSwap re-reads a Ready module's container from disk and replaces
// its sections and export table in place, keeping the record, its name,
// and its reference count. The swap is staged fully before commit: any
// failure leaves the old module untouched. On success the module's
// generation increments, invalidating cached symbol addresses.
//
// The dynamic library sidecar is not reopened; hot swap replaces
// container contents only.
func (l *Loader) HotSwap(name string) error {
	return l.HotSwapFrom(name, "")
}

// HotSwapFrom is HotSwap with an explicit replacement file instead of a
// fresh search-path probe.
func (l *Loader) HotSwapFrom(name, newPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.table[name]
	if !ok {
		return errors.New(errors.PhaseLoad, errors.KindModuleNotFound).
			Module(name).Build()
	}
	if rec.state != StateReady {
		return errors.New(errors.PhaseLoad, errors.KindWrongState).
			Module(name).Detail("module is %s", rec.state).Build()
	}
	if !l.opts.EnableHotSwap || !rec.manifest.HotSwappable {
		return errors.New(errors.PhaseLoad, errors.KindNotSwappable).
			Module(name).Build()
	}

	path := newPath
	if path == "" {
		if probed, ok := l.probe(name); ok {
			path = probed
		} else {
			path = rec.path
		}
	}
	if !fileExists(path) {
		return errors.PathNotFound(name)
	}

	mod, err := native.ReadFile(path)
	if err != nil {
		return errors.New(errors.PhaseLoad, errors.KindFormatInvalid).
			Module(name).Cause(err).Build()
	}
	manifest, err := readManifest(path)
	if err != nil {
		return err
	}
	if !manifest.HotSwappable {
		return errors.New(errors.PhaseLoad, errors.KindNotSwappable).
			Module(name).Detail("replacement manifest is not swappable").Build()
	}
	for _, dep := range manifest.Dependencies {
		if err := mod.AddDependency(dep); err != nil {
			return err
		}
	}

	// Stage new dependency references before touching the record.
	oldDeps := rec.module.Dependencies()
	var staged []string
	for _, dep := range mod.Dependencies() {
		if dep == name {
			l.rollbackStaged(name, staged)
			return errors.New(errors.PhaseLoad, errors.KindDependencyFailed).
				Module(name).Detail("dependency cycle").Build()
		}
		if _, err := l.loadLocked(dep); err != nil {
			l.rollbackStaged(name, staged)
			return errors.DependencyFailed(name, dep, err)
		}
		staged = append(staged, dep)
	}

	// Staging a dependency can release the table lock around its native
	// initialization, so re-check the record before committing.
	if rec.state != StateReady {
		l.rollbackStaged(name, staged)
		return errors.New(errors.PhaseLoad, errors.KindWrongState).
			Module(name).Detail("module is %s", rec.state).Build()
	}

	var exec *mexec.Region
	if l.opts.MapExecutable && mexec.Supported() && len(mod.Code()) > 0 {
		if host, ok := native.HostArchitecture(); ok && host == mod.Header().Architecture {
			exec, err = mexec.Map(mod.Code())
			if err != nil {
				Logger().Warn("code section not mapped executable",
					zap.String("module", name), zap.Error(err))
				exec = nil
			}
		}
	}

	// Commit.
	if rec.exec != nil {
		if err := rec.exec.Release(); err != nil {
			Logger().Warn("release old exec mapping",
				zap.String("module", name), zap.Error(err))
		}
	}
	rec.exec = exec
	rec.module = mod
	rec.manifest = manifest
	rec.path = path
	rec.generation++

	// Drop references the old container held.
	for i := len(oldDeps) - 1; i >= 0; i-- {
		if err := l.unloadLocked(oldDeps[i]); err != nil {
			Logger().Warn("release dependency after swap",
				zap.String("module", name),
				zap.String("dependency", oldDeps[i]),
				zap.Error(err))
		}
	}

	Logger().Info("module hot swapped",
		zap.String("module", name),
		zap.Uint64("generation", rec.generation))
	return nil
}

// rollbackStaged drops dependency references taken during a swap that
// did not commit.
func (l *Loader) rollbackStaged(name string, staged []string) {
	for i := len(staged) - 1; i >= 0; i-- {
		if err := l.unloadLocked(staged[i]); err != nil {
			Logger().Warn("rollback staged dependency",
				zap.String("module", name),
				zap.String("dependency", staged[i]),
				zap.Error(err))
		}
	}
}
