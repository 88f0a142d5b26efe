package native

import (
	"unsafe"

	"github.com/evolvkit/native-runtime/errors"
)

// Module is an in-memory native module: one header, one code buffer, one
// data buffer, and an ordered export table. Construct with New, attach
// sections, then encode or hand to the loader.
//
// Module is not safe for concurrent mutation.
type Module struct {
	header  Header
	code    []byte
	data    []byte
	exports []Export
	deps    []string
}

// New produces an empty module with a well-formed header skeleton.
func New(arch Architecture, kind ModuleKind) *Module {
	return &Module{
		header: Header{
			Magic:        Magic,
			Version:      Version,
			Architecture: arch,
			Kind:         kind,
		},
	}
}

// SetCode replaces the code section and records the entry point offset.
func (m *Module) SetCode(code []byte, entryOffset uint32) error {
	if len(code) == 0 {
		return errors.InvalidArgument("empty code section")
	}
	m.code = append([]byte(nil), code...)
	m.header.CodeSize = uint64(len(code))
	m.header.EntryPointOffset = entryOffset
	return nil
}

// SetData replaces the data section.
func (m *Module) SetData(data []byte) error {
	if len(data) == 0 {
		return errors.InvalidArgument("empty data section")
	}
	m.data = append([]byte(nil), data...)
	m.header.DataSize = uint64(len(data))
	return nil
}

// AddExport appends a named export. The referenced section must already be
// attached: offset+size is checked against the owning section's length.
func (m *Module) AddExport(name string, kind ExportKind, offset, size uint64) error {
	if len(m.exports) >= MaxExports {
		return errors.Format(errors.KindTooManyExports, "table holds %d exports", MaxExports)
	}
	if name == "" {
		return errors.InvalidArgument("empty export name")
	}
	if len(name) > MaxNameLength {
		return errors.InvalidArgument("export name %q exceeds %d bytes", name, MaxNameLength)
	}
	if !kind.Valid() {
		return errors.InvalidArgument("export kind %d out of range", kind)
	}
	for _, e := range m.exports {
		if e.Name == name {
			return errors.InvalidArgument("duplicate export name %q", name)
		}
	}

	entry := Export{Name: name, Kind: kind, Offset: offset, Size: size}
	limit := entry.sectionLen(m.header)
	if offset+size < offset || offset+size > limit {
		return errors.InvalidArgument("export %q spans [%d, %d) outside %d-byte section",
			name, offset, offset+size, limit)
	}

	m.exports = append(m.exports, entry)
	m.header.ExportCount = uint32(len(m.exports))
	return nil
}

// AddDependency declares a module this one requires at load time.
// Dependencies are carried by the sidecar manifest, not the container.
func (m *Module) AddDependency(name string) error {
	if name == "" {
		return errors.InvalidArgument("empty dependency name")
	}
	for _, d := range m.deps {
		if d == name {
			return nil
		}
	}
	m.deps = append(m.deps, name)
	return nil
}

// Header returns a copy of the module header.
func (m *Module) Header() Header {
	return m.header
}

// Code returns the code section. Callers must not mutate it.
func (m *Module) Code() []byte {
	return m.code
}

// Data returns the data section. Callers must not mutate it.
func (m *Module) Data() []byte {
	return m.data
}

// Exports returns the export table in declaration order.
// Callers must not mutate it.
func (m *Module) Exports() []Export {
	return m.exports
}

// Dependencies returns the declared dependency names in declaration order.
func (m *Module) Dependencies() []string {
	return m.deps
}

// EntryOffset returns the entry point offset into the code section.
func (m *Module) EntryOffset() uint32 {
	return m.header.EntryPointOffset
}

// FindExport looks up an export by name.
func (m *Module) FindExport(name string) (Export, bool) {
	for _, e := range m.exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}

// ExportAddress computes the in-memory address of a named export:
// code base plus offset for functions, data base plus offset otherwise.
// The address is only valid while the module is alive.
func (m *Module) ExportAddress(name string) (unsafe.Pointer, bool) {
	e, ok := m.FindExport(name)
	if !ok {
		return nil, false
	}
	var base []byte
	if e.Kind == ExportFunction {
		base = m.code
	} else {
		base = m.data
	}
	if uint64(len(base)) < e.Offset+1 {
		return nil, false
	}
	return unsafe.Pointer(&base[e.Offset]), true
}
