// Package invoke turns a raw native function address into a callable
// with a typed Go signature. Argument and result marshaling (including
// Go string to C string conversion) is delegated to purego's function
// registration; this package only builds the reflect signature around it.
package invoke

import "errors"

// ErrUnsupported is returned on platforms where native calls cannot be made.
var ErrUnsupported = errors.New("invoke: unsupported platform")

// Type is the low-level parameter or result type of a native function.
type Type int

const (
	I32 Type = iota
	I64
	F32
	F64
	Ptr
	String
	Void
)
