// Package bridge exposes a stable, typed, name-addressed calling
// surface over loaded native modules.
//
// Callers know only interface names ("libc.malloc", "math.add") and a
// tagged value representation; the bridge maps each name to a resolved
// module symbol plus a declared signature, validates arity and value
// tags before any native code runs, and marshals arguments and results
// across the boundary. Registration is the single point where a
// signature is bound to an address, so a wrongly declared signature is
// the caller's bug, not a per-call surprise.
package bridge
