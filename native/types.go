package native

import "fmt"

// Header is the fixed-size record at the start of every module container.
// All multi-byte fields are little-endian on disk regardless of host.
type Header struct {
	Magic             uint32
	Version           uint32
	Architecture      Architecture
	Kind              ModuleKind
	CodeOffset        uint64
	CodeSize          uint64
	DataOffset        uint64
	DataSize          uint64
	ExportTableOffset uint64
	ExportCount       uint32
	EntryPointOffset  uint32
	Checksum          uint64
	Reserved          [2]uint32
}

// Export is one entry of a module's export table: a named, typed offset
// into the code or data section.
type Export struct {
	Name   string
	Kind   ExportKind
	Flags  uint32
	Offset uint64
	Size   uint64
}

// section returns the length of the section the export points into.
func (e Export) sectionLen(h Header) uint64 {
	if e.Kind == ExportFunction {
		return h.CodeSize
	}
	return h.DataSize
}

// FileName returns the conventional module file name for a base name and
// architecture, e.g. FileName("libc", ArchX8664) == "libc_x64_64.native".
// The interpreter loads its VM core and libc shim under these names.
func FileName(base string, arch Architecture) string {
	return fmt.Sprintf("%s_%s.native", base, arch.token())
}
