package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evolvkit/native-runtime/errors"
	"github.com/evolvkit/native-runtime/loader/internal/dylib"
	"github.com/evolvkit/native-runtime/native"
)

// fakeLibrary stands in for a dynamic library sidecar so lifecycle
// entry points can be exercised without building real libraries.
type fakeLibrary struct {
	symbols map[string]uintptr
	closed  bool
}

func (f *fakeLibrary) Lookup(symbol string) uintptr { return f.symbols[symbol] }

func (f *fakeLibrary) Close() error {
	f.closed = true
	return nil
}

func stubLibrary(t *testing.T, open func(path string) (dynamicLibrary, error), call func(fn uintptr) (uintptr, error)) {
	t.Helper()
	prevOpen, prevCall := openLibrary, callEntry
	openLibrary, callEntry = open, call
	t.Cleanup(func() {
		openLibrary, callEntry = prevOpen, prevCall
	})
}

func writeDataContainer(t *testing.T, dir, name string) {
	t.Helper()
	arch, ok := native.HostArchitecture()
	if !ok {
		arch = native.ArchX8664
	}
	m := native.New(arch, native.KindUser)
	if err := m.SetData([]byte{1}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := m.WriteFile(filepath.Join(dir, name+".native")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// touchSidecar drops an empty file where the loader probes for the
// dynamic library, so the stubbed open function is consulted.
func touchSidecar(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name+dylib.Extension())
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
}

// A module's init entry point may drive the loader itself, e.g. to pull
// in a plugin it discovers at runtime. Entry points therefore run with
// the table lock released; if that regresses, the nested Load here
// deadlocks instead of completing.
func TestInitEntryCanReenterLoader(t *testing.T) {
	if !dylib.Supported() {
		t.Skip("dynamic libraries unsupported on this platform")
	}
	dir := t.TempDir()
	writeDataContainer(t, dir, "outer")
	writeDataContainer(t, dir, "inner")
	touchSidecar(t, dir, "outer")

	l := New(Options{SearchPaths: []string{dir}})
	defer l.Close()

	const (
		initFn    = uintptr(1)
		cleanupFn = uintptr(2)
	)
	lib := &fakeLibrary{symbols: map[string]uintptr{
		symbolInit:    initFn,
		symbolCleanup: cleanupFn,
	}}
	var calls []uintptr
	stubLibrary(t,
		func(path string) (dynamicLibrary, error) {
			if !strings.HasSuffix(path, "outer"+dylib.Extension()) {
				t.Errorf("opened unexpected library %s", path)
			}
			return lib, nil
		},
		func(fn uintptr) (uintptr, error) {
			calls = append(calls, fn)
			if fn == initFn {
				if _, err := l.Load("inner"); err != nil {
					t.Errorf("load from init entry: %v", err)
				}
			}
			return 0, nil
		})

	info, err := l.Load("outer")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.State != StateReady {
		t.Fatalf("state = %s, want ready", info.State)
	}
	if inner, ok := l.Info("inner"); !ok || inner.State != StateReady {
		t.Fatalf("inner after init callback: %+v ok=%v", inner, ok)
	}

	if err := l.Unload("inner"); err != nil {
		t.Fatalf("Unload inner: %v", err)
	}
	if err := l.Unload("outer"); err != nil {
		t.Fatalf("Unload outer: %v", err)
	}
	if len(calls) != 2 || calls[0] != initFn || calls[1] != cleanupFn {
		t.Errorf("entry calls = %v, want init then cleanup", calls)
	}
	if !lib.closed {
		t.Error("library left open after unload")
	}
}

// A load of the module whose own init is still running must report a
// cycle rather than wait on itself.
func TestInitEntryLoadingItselfReportsCycle(t *testing.T) {
	if !dylib.Supported() {
		t.Skip("dynamic libraries unsupported on this platform")
	}
	dir := t.TempDir()
	writeDataContainer(t, dir, "selfish")
	touchSidecar(t, dir, "selfish")

	l := New(Options{SearchPaths: []string{dir}})
	defer l.Close()

	stubLibrary(t,
		func(string) (dynamicLibrary, error) {
			return &fakeLibrary{symbols: map[string]uintptr{symbolInit: 1}}, nil
		},
		func(fn uintptr) (uintptr, error) {
			if _, err := l.Load("selfish"); !errors.IsKind(err, errors.KindDependencyFailed) {
				t.Errorf("nested Load = %v, want dependency_failed", err)
			}
			return 0, nil
		})

	if _, err := l.Load("selfish"); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestInitEntryFailureParksRecordInError(t *testing.T) {
	if !dylib.Supported() {
		t.Skip("dynamic libraries unsupported on this platform")
	}
	dir := t.TempDir()
	writeDataContainer(t, dir, "flaky")
	touchSidecar(t, dir, "flaky")

	l := New(Options{SearchPaths: []string{dir}})
	defer l.Close()

	lib := &fakeLibrary{symbols: map[string]uintptr{symbolInit: 1}}
	stubLibrary(t,
		func(string) (dynamicLibrary, error) { return lib, nil },
		func(fn uintptr) (uintptr, error) { return 3, nil },
	)

	_, err := l.Load("flaky")
	if !errors.IsKind(err, errors.KindInitFailed) {
		t.Fatalf("Load = %v, want init_failed", err)
	}
	if !lib.closed {
		t.Error("library left open after failed init")
	}
	if info, ok := l.Info("flaky"); !ok || info.State != StateError {
		t.Fatalf("record after failed init: %+v ok=%v", info, ok)
	}
	if _, err := l.Load("flaky"); !errors.IsKind(err, errors.KindAlreadyInError) {
		t.Errorf("repeat Load = %v, want already_in_error", err)
	}
	if got := l.Stats().FailedLoads; got != 1 {
		t.Errorf("FailedLoads = %d, want 1", got)
	}
}
