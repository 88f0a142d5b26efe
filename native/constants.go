package native

import "runtime"

// Magic identifies a native module container ("NATV" little-endian).
const Magic uint32 = 0x5654414E

// Version is the current container format version.
const Version uint32 = 1

const (
	// HeaderSize is the fixed size of the on-disk header in bytes.
	HeaderSize = 80

	// MaxExports bounds the export table. Protocol constant, not an
	// implementation limit.
	MaxExports = 1024

	// NameFieldSize is the fixed on-disk size of an export name field.
	// Names are NUL-terminated, so the longest name is NameFieldSize-1.
	NameFieldSize = 256

	// MaxNameLength is the longest permitted export name.
	MaxNameLength = NameFieldSize - 1

	exportEntrySize  = NameFieldSize + 4 + 4 + 8 + 8
	exportHeaderSize = 8 // count:u32 | reserved:u32
)

// Architecture tags the machine code a module carries.
type Architecture uint32

// HostArchitecture maps the running process to a container architecture
// tag. ok is false when the host has no tag in the enumeration.
func HostArchitecture() (Architecture, bool) {
	switch runtime.GOARCH {
	case "amd64":
		return ArchX8664, true
	case "arm64":
		return ArchARM64, true
	case "386":
		return ArchX8632, true
	default:
		return 0, false
	}
}

const (
	ArchX8664 Architecture = 1
	ArchARM64 Architecture = 2
	ArchX8632 Architecture = 3
)

func (a Architecture) String() string {
	switch a {
	case ArchX8664:
		return "x86-64"
	case ArchARM64:
		return "arm64"
	case ArchX8632:
		return "x86-32"
	default:
		return "unknown"
	}
}

// Valid reports whether the tag is within the closed enumeration.
func (a Architecture) Valid() bool {
	return a >= ArchX8664 && a <= ArchX8632
}

// token returns the architecture fragment used in module file names,
// e.g. "x64_64" in "vm_x64_64.native".
func (a Architecture) token() string {
	switch a {
	case ArchX8664:
		return "x64_64"
	case ArchARM64:
		return "arm64_64"
	case ArchX8632:
		return "x86_32"
	default:
		return "unknown"
	}
}

// ModuleKind classifies a module's role in the toolchain.
type ModuleKind uint32

const (
	KindVM   ModuleKind = 1 // VM core module
	KindLibC ModuleKind = 2 // libc forwarding module
	KindUser ModuleKind = 3 // user-defined module
)

func (k ModuleKind) String() string {
	switch k {
	case KindVM:
		return "vm"
	case KindLibC:
		return "libc"
	case KindUser:
		return "user"
	default:
		return "unknown"
	}
}

// Valid reports whether the kind is within the closed enumeration.
func (k ModuleKind) Valid() bool {
	return k >= KindVM && k <= KindUser
}

// ExportKind classifies an export table entry.
type ExportKind uint32

const (
	ExportFunction ExportKind = 1 // offset into the code section
	ExportVariable ExportKind = 2 // offset into the data section
	ExportConstant ExportKind = 3 // offset into the data section
)

func (k ExportKind) String() string {
	switch k {
	case ExportFunction:
		return "function"
	case ExportVariable:
		return "variable"
	case ExportConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Valid reports whether the kind is within the closed enumeration.
func (k ExportKind) Valid() bool {
	return k >= ExportFunction && k <= ExportConstant
}
