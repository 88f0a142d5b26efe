package native

import (
	"os"

	"github.com/evolvkit/native-runtime/errors"
	"github.com/evolvkit/native-runtime/native/internal/binary"
)

func decodeHeader(r *binary.Reader) (Header, error) {
	var h Header
	var err error

	read32 := func(dst *uint32) {
		if err == nil {
			*dst, err = r.ReadU32()
		}
	}
	read64 := func(dst *uint64) {
		if err == nil {
			*dst, err = r.ReadU64()
		}
	}

	read32(&h.Magic)
	read32(&h.Version)
	read32((*uint32)(&h.Architecture))
	read32((*uint32)(&h.Kind))
	read64(&h.CodeOffset)
	read64(&h.CodeSize)
	read64(&h.DataOffset)
	read64(&h.DataSize)
	read64(&h.ExportTableOffset)
	read32(&h.ExportCount)
	read32(&h.EntryPointOffset)
	read64(&h.Checksum)
	read32(&h.Reserved[0])
	read32(&h.Reserved[1])
	return h, err
}

// sectionInBounds checks that [offset, offset+size) lies inside the input.
func sectionInBounds(offset, size uint64, total int, what string) error {
	end := offset + size
	if end < offset || end > uint64(total) {
		return errors.Format(errors.KindTruncated,
			"%s spans [%d, %d) outside %d-byte input", what, offset, end, total)
	}
	return nil
}

// Decode parses a serialized module. The magic and version are checked
// before any other header field is trusted, every recorded offset is
// bounds-checked against the input, and the result is validated (including
// the checksum) before it is returned. A module that fails validation is
// never returned.
func Decode(data []byte) (*Module, error) {
	if len(data) < HeaderSize {
		return nil, errors.Format(errors.KindTruncated,
			"input of %d bytes shorter than %d-byte header", len(data), HeaderSize)
	}

	r := binary.NewReader(data)
	h, err := decodeHeader(r)
	if err != nil {
		return nil, errors.New(errors.PhaseFormat, errors.KindTruncated).
			Detail("header").
			Cause(err).
			Build()
	}

	if h.Magic != Magic {
		return nil, errors.Format(errors.KindBadMagic, "got %#x, want %#x", h.Magic, Magic)
	}
	if h.Version != Version {
		return nil, errors.Format(errors.KindBadVersion, "got %d, want %d", h.Version, Version)
	}

	if err := sectionInBounds(h.CodeOffset, h.CodeSize, len(data), "code section"); err != nil {
		return nil, err
	}
	if err := sectionInBounds(h.DataOffset, h.DataSize, len(data), "data section"); err != nil {
		return nil, err
	}
	if h.ExportCount > MaxExports {
		return nil, errors.Format(errors.KindTooManyExports,
			"header declares %d exports, limit %d", h.ExportCount, MaxExports)
	}
	tableSize := uint64(exportHeaderSize) + uint64(h.ExportCount)*exportEntrySize
	if h.ExportCount > 0 {
		if err := sectionInBounds(h.ExportTableOffset, tableSize, len(data), "export table"); err != nil {
			return nil, err
		}
	}

	m := &Module{header: h}
	if h.CodeSize > 0 {
		if err := r.Seek(int(h.CodeOffset)); err != nil {
			return nil, err
		}
		if m.code, err = r.ReadBytes(int(h.CodeSize)); err != nil {
			return nil, err
		}
	}
	if h.DataSize > 0 {
		if err := r.Seek(int(h.DataOffset)); err != nil {
			return nil, err
		}
		if m.data, err = r.ReadBytes(int(h.DataSize)); err != nil {
			return nil, err
		}
	}
	var rawRecords []byte
	if h.ExportCount > 0 {
		if err := r.Seek(int(h.ExportTableOffset)); err != nil {
			return nil, err
		}
		count, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		if count != h.ExportCount {
			return nil, errors.Format(errors.KindInvalidExport,
				"table count %d disagrees with header count %d", count, h.ExportCount)
		}
		reserved, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		if reserved != 0 {
			return nil, errors.Format(errors.KindInvalidExport,
				"reserved table field must be zero, got %#x", reserved)
		}
		start := int(h.ExportTableOffset) + exportHeaderSize
		rawRecords = data[start : start+int(count)*exportEntrySize]
	}

	// Verify the checksum over the stored bytes, not a re-serialization
	// of the parsed exports: re-encoding would canonicalize name padding
	// and let a corrupted table region checksum clean.
	if got := rawChecksum(m.code, m.data, rawRecords); got != h.Checksum {
		return nil, errors.Format(errors.KindChecksumMismatch,
			"stored %016x, recomputed %016x from stored content", h.Checksum, got)
	}

	if h.ExportCount > 0 {
		m.exports = make([]Export, 0, h.ExportCount)
		for i := uint32(0); i < h.ExportCount; i++ {
			e, err := decodeExport(r)
			if err != nil {
				return nil, errors.New(errors.PhaseFormat, errors.KindInvalidExport).
					Detail("export %d", i).
					Cause(err).
					Build()
			}
			m.exports = append(m.exports, e)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeExport(r *binary.Reader) (Export, error) {
	var e Export
	var err error

	if e.Name, err = r.ReadName(NameFieldSize); err != nil {
		return e, err
	}
	kind, err := r.ReadU32()
	if err != nil {
		return e, err
	}
	e.Kind = ExportKind(kind)
	if e.Flags, err = r.ReadU32(); err != nil {
		return e, err
	}
	if e.Offset, err = r.ReadU64(); err != nil {
		return e, err
	}
	if e.Size, err = r.ReadU64(); err != nil {
		return e, err
	}
	return e, nil
}

// ReadFile reads and decodes a module from path, validating it before
// returning.
func ReadFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseFormat, errors.KindIO).
			Detail("reading %s", path).
			Cause(err).
			Build()
	}
	return Decode(data)
}
