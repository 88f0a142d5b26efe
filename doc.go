// Package nativeruntime loads native module containers and exposes
// their exports behind stable, typed interface names.
//
// A container is a fixed-layout binary file carrying machine code, a
// data section and a named export table, checksummed over all content.
// Containers are packed by tooling, loaded at runtime with reference
// counting and dependency resolution, and called through a tagged-value
// bridge that validates arity and types before any native code runs.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	nativeruntime/       Root package with the combined Runtime facade
//	├── native/          Container format: encode, decode, validate
//	├── loader/          Lifecycle: search paths, mapping, refcounts, hot swap
//	├── bridge/          Typed call surface over loaded modules
//	├── errors/          Structured error types shared by all layers
//	└── cmd/nativemod/   CLI: pack, inspect, verify, disasm, modules, call
//
// # Quick Start
//
// Load a module and call an export:
//
//	rt := nativeruntime.New()
//	defer rt.Close()
//
//	if _, err := rt.Load("mathmod"); err != nil {
//	    log.Fatal(err)
//	}
//	err := rt.RegisterInterface("math.add", "mathmod", "add",
//	    bridge.Sig(bridge.KindI32, bridge.KindI32, bridge.KindI32))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := rt.Call("math.add", []bridge.Value{bridge.I32(2), bridge.I32(3)})
//	fmt.Println(out) // i32(5)
//
// # Thread Safety
//
// Runtime, Loader and Bridge are safe for concurrent use. Every public
// operation is a short critical section; native calls and module
// lifecycle entry points run outside the table locks.
//
// # Platform Support
//
// Executable code mapping and native invocation are available on Linux,
// macOS, FreeBSD and Windows on amd64 and arm64. Elsewhere the format
// and loader bookkeeping still work; only direct calls are refused.
package nativeruntime
