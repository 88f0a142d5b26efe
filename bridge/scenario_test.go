package bridge_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/evolvkit/native-runtime/bridge"
	"github.com/evolvkit/native-runtime/errors"
	"github.com/evolvkit/native-runtime/loader"
	"github.com/evolvkit/native-runtime/native"
)

// addStub returns machine code for int add(int a, int b) under the
// host's C calling convention, or nil when none is available.
func addStub() []byte {
	switch runtime.GOARCH {
	case "amd64":
		if runtime.GOOS == "windows" {
			return nil
		}
		// lea eax, [rdi+rsi]; ret
		return []byte{0x8D, 0x04, 0x37, 0xC3}
	case "arm64":
		// add w0, w0, w1; ret
		return []byte{0x00, 0x00, 0x01, 0x0B, 0xC0, 0x03, 0x5F, 0xD6}
	default:
		return nil
	}
}

// The full path: pack a container carrying a real add function, load
// it, register a typed interface over the export, and call through it.
func TestAddEndToEnd(t *testing.T) {
	requireInvoke(t)
	code := addStub()
	if code == nil {
		t.Skip("no add stub for this platform")
	}
	arch, ok := native.HostArchitecture()
	if !ok {
		t.Skip("host architecture has no container tag")
	}

	m := native.New(arch, native.KindUser)
	if err := m.SetCode(code, 0); err != nil {
		t.Fatalf("SetCode: %v", err)
	}
	if err := m.AddExport("add", native.ExportFunction, 0, uint64(len(code))); err != nil {
		t.Fatalf("AddExport: %v", err)
	}

	dir := t.TempDir()
	if err := m.WriteFile(filepath.Join(dir, "mathmod.native")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	l := loader.New(loader.Options{
		SearchPaths:   []string{dir},
		MapExecutable: true,
	})
	defer l.Close()

	if _, err := l.Load("mathmod"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := l.ResolveSymbol("mathmod", "add"); !ok {
		t.Skip("executable mapping unavailable on this system")
	}

	b := bridge.New(l)
	if err := b.RegisterInterface("math.add", "mathmod", "add",
		bridge.Sig(bridge.KindI32, bridge.KindI32, bridge.KindI32)); err != nil {
		t.Fatalf("RegisterInterface: %v", err)
	}

	out, err := b.Call("math.add", []bridge.Value{bridge.I32(2), bridge.I32(3)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.Kind() != bridge.KindI32 || out.AsI32() != 5 {
		t.Errorf("math.add(2, 3) = %s, want i32(5)", out)
	}

	if _, err := b.Call("math.add", []bridge.Value{bridge.I32(2)}); !errors.IsKind(err, errors.KindArityMismatch) {
		t.Errorf("wrong arity: err = %v, want arity_mismatch", err)
	}
	if _, err := b.Call("math.add", []bridge.Value{bridge.Str("x"), bridge.I32(3)}); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("wrong tag: err = %v, want type_mismatch", err)
	}
}
