// Package loader maps native module containers into the process and
// tracks their lifecycle.
//
// Each module moves through Loading, Loaded and Initializing into Ready;
// failures after resources were acquired park the record in Error so a
// repeated Load reports the original failure instead of retrying
// blindly. Ready modules are reference counted: Load on a Ready module
// takes another reference, Unload drops one, and the module only leaves
// the process when the last reference goes.
//
// A container may have two optional sidecars next to it: a TOML
// manifest (<name>.toml) declaring dependencies and the hot-swap
// opt-in, and a platform dynamic library (<name>.so/.dylib/.dll)
// providing lifecycle entry points and extra symbols. Neither is
// required; a bare container loads on its own.
package loader
