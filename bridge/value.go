package bridge

import "fmt"

// ValueKind is the closed set of primitive types crossing the native
// boundary.
type ValueKind int

const (
	KindVoid ValueKind = iota
	KindI32
	KindI64
	KindF32
	KindF64
	KindPtr
	KindStr
)

var kindNames = map[ValueKind]string{
	KindVoid: "void",
	KindI32:  "i32",
	KindI64:  "i64",
	KindF32:  "f32",
	KindF64:  "f64",
	KindPtr:  "ptr",
	KindStr:  "str",
}

func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether the kind is within the closed set.
func (k ValueKind) Valid() bool {
	return k >= KindVoid && k <= KindStr
}

// Value is a discriminated container for one primitive value. Arguments
// and results cross the call boundary as Values; the discriminant is
// compared against the declared signature before any native code runs,
// with no coercion between kinds.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
}

// Constructors, one per kind.

func I32(v int32) Value   { return Value{kind: KindI32, i: int64(v)} }
func I64(v int64) Value   { return Value{kind: KindI64, i: v} }
func F32(v float32) Value { return Value{kind: KindF32, f: float64(v)} }
func F64(v float64) Value { return Value{kind: KindF64, f: v} }
func Ptr(v uintptr) Value { return Value{kind: KindPtr, i: int64(v)} }
func Str(v string) Value  { return Value{kind: KindStr, s: v} }
func Void() Value         { return Value{kind: KindVoid} }

// Kind returns the value's discriminant.
func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) AsI32() int32   { return int32(v.i) }
func (v Value) AsI64() int64   { return v.i }
func (v Value) AsF32() float32 { return float32(v.f) }
func (v Value) AsF64() float64 { return v.f }
func (v Value) AsPtr() uintptr { return uintptr(v.i) }
func (v Value) AsStr() string  { return v.s }

func (v Value) String() string {
	switch v.kind {
	case KindVoid:
		return "void"
	case KindI32, KindI64:
		return fmt.Sprintf("%s(%d)", v.kind, v.i)
	case KindF32, KindF64:
		return fmt.Sprintf("%s(%g)", v.kind, v.f)
	case KindPtr:
		return fmt.Sprintf("ptr(%#x)", uintptr(v.i))
	case KindStr:
		return fmt.Sprintf("str(%q)", v.s)
	default:
		return "unknown"
	}
}
