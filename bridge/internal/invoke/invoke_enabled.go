//go:build (darwin || freebsd || linux || windows) && (amd64 || arm64)

package invoke

import (
	"fmt"
	"reflect"

	"github.com/ebitengine/purego"
)

// Supported reports whether native calls can be made on this platform.
func Supported() bool {
	return true
}

var goTypes = map[Type]reflect.Type{
	I32:    reflect.TypeOf(int32(0)),
	I64:    reflect.TypeOf(int64(0)),
	F32:    reflect.TypeOf(float32(0)),
	F64:    reflect.TypeOf(float64(0)),
	Ptr:    reflect.TypeOf(uintptr(0)),
	String: reflect.TypeOf(""),
}

// Func is a native function address wrapped in a typed Go callable.
type Func struct {
	callable reflect.Value
	params   []Type
	ret      Type
}

// New binds the native function at addr to the given signature.
func New(addr uintptr, params []Type, ret Type) (*Func, error) {
	if addr == 0 {
		return nil, fmt.Errorf("invoke: nil function address")
	}

	in := make([]reflect.Type, len(params))
	for i, p := range params {
		t, ok := goTypes[p]
		if !ok {
			return nil, fmt.Errorf("invoke: parameter %d has no machine type", i)
		}
		in[i] = t
	}
	var out []reflect.Type
	if ret != Void {
		t, ok := goTypes[ret]
		if !ok {
			return nil, fmt.Errorf("invoke: result has no machine type")
		}
		out = []reflect.Type{t}
	}

	fnPtr := reflect.New(reflect.FuncOf(in, out, false))
	if err := register(fnPtr.Interface(), addr); err != nil {
		return nil, err
	}
	return &Func{callable: fnPtr.Elem(), params: params, ret: ret}, nil
}

// register isolates purego's panic-on-bad-signature behavior.
func register(fnPtr any, addr uintptr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invoke: bind function: %v", r)
		}
	}()
	purego.RegisterFunc(fnPtr, addr)
	return nil
}

// Call invokes the native function. Arguments must already hold the Go
// type matching their declared parameter (int32, int64, float32,
// float64, uintptr or string). A crash in the native code surfaces as
// an error, not a process abort, where the platform allows recovery.
func (f *Func) Call(args []any) (result any, err error) {
	if len(args) != len(f.params) {
		return nil, fmt.Errorf("invoke: got %d arguments, want %d", len(args), len(f.params))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invoke: native call panicked: %v", r)
		}
	}()

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v := reflect.ValueOf(a)
		want := goTypes[f.params[i]]
		if v.Type() != want {
			return nil, fmt.Errorf("invoke: argument %d is %s, want %s", i, v.Type(), want)
		}
		in[i] = v
	}

	out := f.callable.Call(in)
	if f.ret == Void {
		return nil, nil
	}
	return out[0].Interface(), nil
}
