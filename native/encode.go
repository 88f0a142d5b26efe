package native

import (
	"os"

	"github.com/evolvkit/native-runtime/errors"
	"github.com/evolvkit/native-runtime/native/internal/binary"
)

// encodeExportRecords serializes the fixed-size export records (without the
// count/reserved table header). This byte sequence is also the export-table
// region covered by the checksum.
func encodeExportRecords(exports []Export) []byte {
	w := binary.NewWriter()
	for _, e := range exports {
		w.WriteName(e.Name, NameFieldSize)
		w.WriteU32(uint32(e.Kind))
		w.WriteU32(e.Flags)
		w.WriteU64(e.Offset)
		w.WriteU64(e.Size)
	}
	return w.Bytes()
}

func encodeHeader(w *binary.Writer, h Header) {
	w.WriteU32(h.Magic)
	w.WriteU32(h.Version)
	w.WriteU32(uint32(h.Architecture))
	w.WriteU32(uint32(h.Kind))
	w.WriteU64(h.CodeOffset)
	w.WriteU64(h.CodeSize)
	w.WriteU64(h.DataOffset)
	w.WriteU64(h.DataSize)
	w.WriteU64(h.ExportTableOffset)
	w.WriteU32(h.ExportCount)
	w.WriteU32(h.EntryPointOffset)
	w.WriteU64(h.Checksum)
	w.WriteU32(h.Reserved[0])
	w.WriteU32(h.Reserved[1])
}

// Encode serializes the module in the fixed order header, code, data,
// export table. Section offsets and the checksum are recomputed into the
// header before it is written.
func (m *Module) Encode() []byte {
	offset := uint64(HeaderSize)
	m.header.CodeOffset = offset
	offset += m.header.CodeSize
	m.header.DataOffset = offset
	offset += m.header.DataSize
	m.header.ExportTableOffset = offset
	m.header.ExportCount = uint32(len(m.exports))
	m.UpdateChecksum()

	w := binary.NewWriter()
	encodeHeader(w, m.header)
	w.WriteBytes(m.code)
	w.WriteBytes(m.data)
	w.WriteU32(uint32(len(m.exports)))
	w.WriteU32(0) // reserved
	w.WriteBytes(encodeExportRecords(m.exports))
	return w.Bytes()
}

// WriteFile validates the module and serializes it to path. A module
// that would be rejected by ReadFile is never written; mutations after
// AddExport (such as shrinking a section) surface here instead of at
// the next load.
func (m *Module) WriteFile(path string) error {
	data := m.Encode()
	if err := m.Validate(); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.PhaseFormat, errors.KindIO).
			Detail("writing %s", path).
			Cause(err).
			Build()
	}
	return nil
}
