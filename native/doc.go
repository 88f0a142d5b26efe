// Package native implements the .native module container format.
//
// A native module is a self-contained binary artifact holding precompiled
// machine code, optional data, and a named export table. The on-disk layout
// is fixed and little-endian: an 80-byte header, the raw code bytes, the
// raw data bytes, and the export table, at the offsets recorded in the
// header.
//
// # Building a module
//
//	m := native.New(native.ArchX8664, native.KindUser)
//	m.SetCode(code, 0)
//	m.SetData(data)
//	m.AddExport("add", native.ExportFunction, 0, 4)
//	m.WriteFile("add_x64_64.native")
//
// # Loading a module
//
//	m, err := native.ReadFile("add_x64_64.native")
//
// ReadFile checks the magic and version before trusting any other header
// field, bounds-checks every recorded offset, and verifies the CRC-64
// integrity checksum; a module that fails any check is never returned.
//
// The package performs no OS-level loading; see the loader package for
// mapping modules into a running process.
package native
