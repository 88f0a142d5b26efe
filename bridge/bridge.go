package bridge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/evolvkit/native-runtime/bridge/internal/invoke"
	"github.com/evolvkit/native-runtime/errors"
)

// Resolver is the loader surface the bridge needs: symbol resolution
// within one module, and the module's swap generation so cached
// addresses can be invalidated after a hot swap.
type Resolver interface {
	ResolveSymbol(module, symbol string) (uintptr, bool)
	Generation(module string) uint64
}

// Descriptor is one registered interface: a stable name bound to a
// resolved module symbol and a declared call signature.
type Descriptor struct {
	Name      string
	Module    string
	Symbol    string
	Signature Signature
}

// binding pairs a descriptor with its resolved address and the typed
// callable built over it. The address is only valid for the generation
// it was resolved under; a swap forces re-resolution.
type binding struct {
	desc       Descriptor
	addr       uintptr
	generation uint64
	fn         *invoke.Func
}

// Bridge is the process-wide registry mapping interface names to
// resolved, typed native functions. Thread-safe; the registry lock is
// never held across a native call.
type Bridge struct {
	mu       sync.Mutex
	resolver Resolver
	table    map[string]*binding
	order    []string
}

// New creates a bridge resolving symbols through r, normally a
// *loader.Loader.
func New(r Resolver) *Bridge {
	return &Bridge{
		resolver: r,
		table:    make(map[string]*binding),
	}
}

// RegisterInterface binds name to the module symbol under the given
// signature, overwriting any prior registration under the same name.
// This is the single point where a signature is bound to an address:
// after it succeeds the bridge treats the address as exactly that
// signature's function.
func (b *Bridge) RegisterInterface(name, module, symbol string, sig Signature) error {
	if name == "" {
		return errors.New(errors.PhaseBridge, errors.KindInvalidArgument).
			Detail("empty interface name").Build()
	}
	if err := sig.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bnd, err := b.bind(Descriptor{
		Name:      name,
		Module:    module,
		Symbol:    symbol,
		Signature: sig,
	})
	if err != nil {
		return err
	}

	if _, exists := b.table[name]; !exists {
		b.order = append(b.order, name)
	}
	b.table[name] = bnd

	Logger().Info("interface registered",
		zap.String("interface", name),
		zap.String("module", module),
		zap.String("symbol", symbol),
		zap.String("signature", sig.String()))
	return nil
}

// bind resolves the descriptor's symbol and builds its typed callable.
func (b *Bridge) bind(desc Descriptor) (*binding, error) {
	addr, ok := b.resolver.ResolveSymbol(desc.Module, desc.Symbol)
	if !ok {
		return nil, errors.SymbolNotFound(desc.Module, desc.Symbol)
	}

	params := make([]invoke.Type, len(desc.Signature.Params))
	for i, p := range desc.Signature.Params {
		params[i] = kindToType(p)
	}
	fn, err := invoke.New(addr, params, kindToType(desc.Signature.Return))
	if err != nil {
		kind := errors.KindInvalidArgument
		if !invoke.Supported() {
			kind = errors.KindUnsupported
		}
		return nil, errors.New(errors.PhaseBridge, kind).
			Module(desc.Module).Symbol(desc.Symbol).Cause(err).Build()
	}

	return &binding{
		desc:       desc,
		addr:       addr,
		generation: b.resolver.Generation(desc.Module),
		fn:         fn,
	}, nil
}

// Unregister removes an interface. Reports whether it was registered.
func (b *Bridge) Unregister(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.table[name]; !ok {
		return false
	}
	delete(b.table, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Call validates args against the registered signature and invokes the
// bound native function. Validation failures never reach native code;
// a failure signaled by the native side surfaces as CallFailed.
func (b *Bridge) Call(name string, args []Value) (Value, error) {
	bnd, err := b.callable(name)
	if err != nil {
		return Void(), err
	}

	sig := bnd.desc.Signature
	if len(args) != len(sig.Params) {
		return Void(), errors.ArityMismatch(name, len(sig.Params), len(args))
	}
	for i, a := range args {
		if a.Kind() != sig.Params[i] {
			return Void(), errors.TypeMismatch(name, i,
				sig.Params[i].String(), a.Kind().String())
		}
	}

	raw := make([]any, len(args))
	for i, a := range args {
		raw[i] = marshalArg(a)
	}

	result, err := bnd.fn.Call(raw)
	if err != nil {
		return Void(), errors.CallFailed(name, err)
	}
	return unmarshalResult(sig.Return, result), nil
}

// callable looks up the binding for name, re-resolving it when the
// owning module was swapped since the address was taken. The lock is
// released before the caller invokes the bound function.
func (b *Bridge) callable(name string) (*binding, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bnd, ok := b.table[name]
	if !ok {
		return nil, errors.InterfaceNotFound(name)
	}

	if gen := b.resolver.Generation(bnd.desc.Module); gen != bnd.generation {
		fresh, err := b.bind(bnd.desc)
		if err != nil {
			return nil, err
		}
		b.table[name] = fresh
		Logger().Debug("interface re-resolved after swap",
			zap.String("interface", name),
			zap.Uint64("generation", gen))
		bnd = fresh
	}
	return bnd, nil
}

// Interfaces returns all registered descriptors in registration order.
func (b *Bridge) Interfaces() []Descriptor {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Descriptor, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.table[name].desc)
	}
	return out
}

// Describe returns the descriptor registered under name.
func (b *Bridge) Describe(name string) (Descriptor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bnd, ok := b.table[name]; ok {
		return bnd.desc, true
	}
	return Descriptor{}, false
}

func kindToType(k ValueKind) invoke.Type {
	switch k {
	case KindI32:
		return invoke.I32
	case KindI64:
		return invoke.I64
	case KindF32:
		return invoke.F32
	case KindF64:
		return invoke.F64
	case KindPtr:
		return invoke.Ptr
	case KindStr:
		return invoke.String
	default:
		return invoke.Void
	}
}

func marshalArg(v Value) any {
	switch v.Kind() {
	case KindI32:
		return v.AsI32()
	case KindI64:
		return v.AsI64()
	case KindF32:
		return v.AsF32()
	case KindF64:
		return v.AsF64()
	case KindPtr:
		return v.AsPtr()
	case KindStr:
		return v.AsStr()
	default:
		return nil
	}
}

func unmarshalResult(k ValueKind, r any) Value {
	switch k {
	case KindI32:
		return I32(r.(int32))
	case KindI64:
		return I64(r.(int64))
	case KindF32:
		return F32(r.(float32))
	case KindF64:
		return F64(r.(float64))
	case KindPtr:
		return Ptr(r.(uintptr))
	case KindStr:
		return Str(r.(string))
	default:
		return Void()
	}
}
