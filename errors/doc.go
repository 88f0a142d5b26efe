// Package errors provides the structured error type shared by the native
// module format, the loader, and the call bridge.
//
// Every error carries a Phase (which subsystem refused the operation) and a
// Kind (the precise refusal), so callers can branch on failure variants
// without string matching:
//
//	if errors.IsKind(err, errors.KindChecksumMismatch) {
//	    // corrupted module file
//	}
//
// Errors of the same Phase and Kind compare equal under errors.Is, letting
// tests match against a bare constructor result.
package errors
