package bridge_test

import (
	"testing"
	"unsafe"

	"github.com/evolvkit/native-runtime/bridge"
	"github.com/evolvkit/native-runtime/bridge/internal/invoke"
	"github.com/evolvkit/native-runtime/errors"
)

// fakeResolver maps module/symbol pairs to addresses without a real
// loader. The addresses are never called; tests using it stop at the
// validation steps that run before any native invocation.
type fakeResolver struct {
	symbols     map[string]map[string]uintptr
	generations map[string]uint64
	resolves    int
}

func (r *fakeResolver) ResolveSymbol(module, symbol string) (uintptr, bool) {
	r.resolves++
	addr, ok := r.symbols[module][symbol]
	return addr, ok
}

func (r *fakeResolver) Generation(module string) uint64 {
	return r.generations[module]
}

var fakeTarget byte

func fakeAddr() uintptr {
	return uintptr(unsafe.Pointer(&fakeTarget))
}

func newFakeResolver(module string, symbols ...string) *fakeResolver {
	table := make(map[string]uintptr, len(symbols))
	for _, s := range symbols {
		table[s] = fakeAddr()
	}
	return &fakeResolver{
		symbols:     map[string]map[string]uintptr{module: table},
		generations: map[string]uint64{module: 1},
	}
}

func requireInvoke(t *testing.T) {
	t.Helper()
	if !invoke.Supported() {
		t.Skip("native invocation unsupported on this platform")
	}
}

func TestRegisterUnknownSymbol(t *testing.T) {
	requireInvoke(t)
	b := bridge.New(newFakeResolver("mathmod", "add"))

	err := b.RegisterInterface("math.sub", "mathmod", "sub", bridge.Sig(bridge.KindI32))
	if !errors.IsKind(err, errors.KindSymbolNotFound) {
		t.Fatalf("err = %v, want symbol_not_found", err)
	}
}

func TestRegisterOverwrites(t *testing.T) {
	requireInvoke(t)
	b := bridge.New(newFakeResolver("mathmod", "add"))

	if err := b.RegisterInterface("math.add", "mathmod", "add",
		bridge.Sig(bridge.KindI32, bridge.KindI32)); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := b.RegisterInterface("math.add", "mathmod", "add",
		bridge.Sig(bridge.KindI64, bridge.KindI64, bridge.KindI64)); err != nil {
		t.Fatalf("second register: %v", err)
	}

	desc, ok := b.Describe("math.add")
	if !ok {
		t.Fatal("Describe missed")
	}
	if len(desc.Signature.Params) != 2 || desc.Signature.Return != bridge.KindI64 {
		t.Errorf("signature = %s, want the overwriting one", desc.Signature)
	}
	if got := len(b.Interfaces()); got != 1 {
		t.Errorf("Interfaces() has %d entries, want 1", got)
	}
}

func TestCallInterfaceNotFound(t *testing.T) {
	b := bridge.New(newFakeResolver("mathmod"))

	_, err := b.Call("math.add", nil)
	if !errors.IsKind(err, errors.KindInterfaceNotFound) {
		t.Fatalf("err = %v, want interface_not_found", err)
	}
}

func TestCallArityMismatch(t *testing.T) {
	requireInvoke(t)
	b := bridge.New(newFakeResolver("mathmod", "add"))

	if err := b.RegisterInterface("math.add", "mathmod", "add",
		bridge.Sig(bridge.KindI32, bridge.KindI32, bridge.KindI32)); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := b.Call("math.add", []bridge.Value{bridge.I32(2)})
	if !errors.IsKind(err, errors.KindArityMismatch) {
		t.Fatalf("err = %v, want arity_mismatch", err)
	}
}

func TestCallTypeMismatchReportsIndex(t *testing.T) {
	requireInvoke(t)
	b := bridge.New(newFakeResolver("mathmod", "add"))

	if err := b.RegisterInterface("math.add", "mathmod", "add",
		bridge.Sig(bridge.KindI32, bridge.KindI32, bridge.KindI32)); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := b.Call("math.add", []bridge.Value{bridge.Str("x"), bridge.I32(3)})
	if !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Fatalf("err = %v, want type_mismatch", err)
	}
	e, ok := err.(*errors.Error)
	if !ok || e.Index != 0 {
		t.Errorf("mismatch index = %v, want 0", e)
	}
}

func TestSignatureValidation(t *testing.T) {
	requireInvoke(t)
	b := bridge.New(newFakeResolver("mathmod", "add"))

	params := make([]bridge.ValueKind, bridge.MaxSignatureParams+1)
	for i := range params {
		params[i] = bridge.KindI32
	}
	err := b.RegisterInterface("math.big", "mathmod", "add",
		bridge.Signature{Params: params, Return: bridge.KindVoid})
	if !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Fatalf("oversized signature: err = %v, want invalid_argument", err)
	}

	err = b.RegisterInterface("math.voidparam", "mathmod", "add",
		bridge.Sig(bridge.KindI32, bridge.KindVoid))
	if !errors.IsKind(err, errors.KindInvalidArgument) {
		t.Fatalf("void parameter: err = %v, want invalid_argument", err)
	}
}

func TestUnregister(t *testing.T) {
	requireInvoke(t)
	b := bridge.New(newFakeResolver("mathmod", "add"))

	if err := b.RegisterInterface("math.add", "mathmod", "add",
		bridge.Sig(bridge.KindI32, bridge.KindI32, bridge.KindI32)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !b.Unregister("math.add") {
		t.Fatal("Unregister should report removal")
	}
	if b.Unregister("math.add") {
		t.Error("second Unregister should report absence")
	}
	_, err := b.Call("math.add", nil)
	if !errors.IsKind(err, errors.KindInterfaceNotFound) {
		t.Fatalf("err = %v, want interface_not_found", err)
	}
}

func TestSwapForcesReResolution(t *testing.T) {
	requireInvoke(t)
	r := newFakeResolver("mathmod", "add")
	b := bridge.New(r)

	if err := b.RegisterInterface("math.add", "mathmod", "add",
		bridge.Sig(bridge.KindI32, bridge.KindI32, bridge.KindI32)); err != nil {
		t.Fatalf("register: %v", err)
	}
	before := r.resolves

	// Same generation: the cached address is kept. The wrong-arity call
	// stops before native code runs.
	if _, err := b.Call("math.add", nil); !errors.IsKind(err, errors.KindArityMismatch) {
		t.Fatalf("err = %v, want arity_mismatch", err)
	}
	if r.resolves != before {
		t.Fatalf("resolves = %d, want %d (no re-resolution)", r.resolves, before)
	}

	r.generations["mathmod"] = 2
	if _, err := b.Call("math.add", nil); !errors.IsKind(err, errors.KindArityMismatch) {
		t.Fatalf("err = %v, want arity_mismatch", err)
	}
	if r.resolves != before+1 {
		t.Fatalf("resolves = %d, want %d (one re-resolution)", r.resolves, before+1)
	}

	// Symbol gone after the swap: re-resolution fails per call.
	delete(r.symbols["mathmod"], "add")
	r.generations["mathmod"] = 3
	_, err := b.Call("math.add", nil)
	if !errors.IsKind(err, errors.KindSymbolNotFound) {
		t.Fatalf("err = %v, want symbol_not_found", err)
	}
}

func TestRegisterStdlib(t *testing.T) {
	requireInvoke(t)
	r := newFakeResolver("libc", "malloc", "free", "strlen", "printf")
	b := bridge.New(r)

	if err := b.RegisterStdlib(""); err != nil {
		t.Fatalf("RegisterStdlib: %v", err)
	}
	for _, name := range []string{"libc.malloc", "libc.free", "libc.strlen", "libc.printf"} {
		if _, ok := b.Describe(name); !ok {
			t.Errorf("%s not registered", name)
		}
	}
	desc, _ := b.Describe("libc.malloc")
	if desc.Signature.Return != bridge.KindPtr {
		t.Errorf("malloc returns %s, want ptr", desc.Signature.Return)
	}
}

func TestValueTagging(t *testing.T) {
	cases := []struct {
		v    bridge.Value
		kind bridge.ValueKind
	}{
		{bridge.I32(-7), bridge.KindI32},
		{bridge.I64(1 << 40), bridge.KindI64},
		{bridge.F32(1.5), bridge.KindF32},
		{bridge.F64(2.25), bridge.KindF64},
		{bridge.Ptr(0xDEAD), bridge.KindPtr},
		{bridge.Str("hi"), bridge.KindStr},
		{bridge.Void(), bridge.KindVoid},
	}
	for _, c := range cases {
		if c.v.Kind() != c.kind {
			t.Errorf("%s tagged %s, want %s", c.v, c.v.Kind(), c.kind)
		}
	}

	if got := bridge.I32(-7).AsI32(); got != -7 {
		t.Errorf("AsI32 = %d", got)
	}
	if got := bridge.F64(2.25).AsF64(); got != 2.25 {
		t.Errorf("AsF64 = %g", got)
	}
	if got := bridge.Str("hi").AsStr(); got != "hi" {
		t.Errorf("AsStr = %q", got)
	}
}

func TestSignatureString(t *testing.T) {
	sig := bridge.Sig(bridge.KindI32, bridge.KindI32, bridge.KindStr)
	if got := sig.String(); got != "(i32, str) -> i32" {
		t.Errorf("String = %q", got)
	}
	if got := bridge.Sig(bridge.KindVoid).String(); got != "() -> void" {
		t.Errorf("String = %q", got)
	}
}
