package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which subsystem produced the error
type Phase string

const (
	PhaseFormat Phase = "format" // container encode/decode/validate
	PhaseLoad   Phase = "load"   // loader table operations
	PhaseBridge Phase = "bridge" // interface registration
	PhaseCall   Phase = "call"   // per-call marshaling and dispatch
)

// Kind categorizes the error
type Kind string

const (
	// Format kinds, detected during validate/decode/add-export.
	KindBadMagic         Kind = "bad_magic"
	KindBadVersion       Kind = "bad_version"
	KindBadArchitecture  Kind = "bad_architecture"
	KindBadModuleKind    Kind = "bad_module_kind"
	KindChecksumMismatch Kind = "checksum_mismatch"
	KindInvalidExport    Kind = "invalid_export"
	KindTooManyExports   Kind = "too_many_exports"
	KindInvalidArgument  Kind = "invalid_argument"
	KindTruncated        Kind = "truncated"
	KindIO               Kind = "io"

	// Loader kinds.
	KindFormatInvalid    Kind = "format_invalid"
	KindPathNotFound     Kind = "path_not_found"
	KindDependencyFailed Kind = "dependency_failed"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindAlreadyInError   Kind = "already_in_error_state"
	KindInitFailed       Kind = "init_failed"
	KindNotSwappable     Kind = "not_swappable"
	KindWrongState       Kind = "wrong_state"
	KindModuleNotFound   Kind = "module_not_found"

	// Bridge kinds.
	KindInterfaceNotFound Kind = "interface_not_found"
	KindSymbolNotFound    Kind = "symbol_not_found"
	KindArityMismatch     Kind = "arity_mismatch"
	KindTypeMismatch      Kind = "type_mismatch"
	KindCallFailed        Kind = "call_failed"
	KindUnsupported       Kind = "unsupported"
)

// Error is the structured error type used throughout the module system.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Module string
	Symbol string
	Detail string
	Index  int // argument index for type mismatches, -1 otherwise
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(": module ")
		b.WriteString(e.Module)
	}

	if e.Symbol != "" {
		if e.Module != "" {
			b.WriteByte('.')
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Symbol)
	}

	if e.Index >= 0 {
		fmt.Fprintf(&b, " (argument %d)", e.Index)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two Errors match when their
// Phase and Kind agree, so callers can test against a bare constructor result.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
			Index: -1,
		},
	}
}

// Module sets the module name
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// Symbol sets the symbol or interface name
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Index sets the offending argument index
func (b *Builder) Index(i int) *Builder {
	b.err.Index = i
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Format creates a format-phase error of the given kind.
func Format(kind Kind, detail string, args ...any) *Error {
	return New(PhaseFormat, kind).Detail(detail, args...).Build()
}

// InvalidArgument creates a format-phase invalid argument error.
func InvalidArgument(detail string, args ...any) *Error {
	return Format(KindInvalidArgument, detail, args...)
}

// Load creates a load-phase error of the given kind for a module.
func Load(kind Kind, module string, cause error) *Error {
	return New(PhaseLoad, kind).Module(module).Cause(cause).Build()
}

// PathNotFound reports that no search directory contained the module.
func PathNotFound(module string) *Error {
	return New(PhaseLoad, KindPathNotFound).Module(module).Build()
}

// DependencyFailed reports a failed transitive dependency load.
func DependencyFailed(module, dependency string, cause error) *Error {
	return New(PhaseLoad, KindDependencyFailed).
		Module(module).
		Detail("dependency %s", dependency).
		Cause(cause).
		Build()
}

// SymbolNotFound reports an unresolvable module symbol.
func SymbolNotFound(module, symbol string) *Error {
	return New(PhaseBridge, KindSymbolNotFound).Module(module).Symbol(symbol).Build()
}

// InterfaceNotFound reports an unregistered interface name.
func InterfaceNotFound(name string) *Error {
	return New(PhaseCall, KindInterfaceNotFound).Symbol(name).Build()
}

// ArityMismatch reports a call with the wrong number of arguments.
func ArityMismatch(name string, want, got int) *Error {
	return New(PhaseCall, KindArityMismatch).
		Symbol(name).
		Detail("expected %d arguments, got %d", want, got).
		Build()
}

// TypeMismatch reports an argument whose tag differs from the declared
// parameter type at the given position.
func TypeMismatch(name string, index int, want, got string) *Error {
	return New(PhaseCall, KindTypeMismatch).
		Symbol(name).
		Index(index).
		Detail("expected %s, got %s", want, got).
		Build()
}

// CallFailed reports a failure signaled by the native side of a call.
func CallFailed(name string, cause error) *Error {
	return New(PhaseCall, KindCallFailed).Symbol(name).Cause(cause).Build()
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
