package native_test

import (
	"bytes"
	"encoding/binary"
	"hash/crc64"
	"os"
	"path/filepath"
	"testing"

	"github.com/evolvkit/native-runtime/errors"
	"github.com/evolvkit/native-runtime/native"
)

func TestRoundTrip(t *testing.T) {
	m := buildModule(t)
	path := filepath.Join(t.TempDir(), "user_x64_64.native")

	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := native.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if got.Header() != m.Header() {
		t.Errorf("header mismatch:\n got %+v\nwant %+v", got.Header(), m.Header())
	}
	if !bytes.Equal(got.Code(), m.Code()) {
		t.Errorf("code mismatch: got %x, want %x", got.Code(), m.Code())
	}
	if !bytes.Equal(got.Data(), m.Data()) {
		t.Errorf("data mismatch: got %x, want %x", got.Data(), m.Data())
	}
	if len(got.Exports()) != len(m.Exports()) {
		t.Fatalf("export count = %d, want %d", len(got.Exports()), len(m.Exports()))
	}
	for i, e := range m.Exports() {
		if got.Exports()[i] != e {
			t.Errorf("export %d = %+v, want %+v", i, got.Exports()[i], e)
		}
	}
}

func TestRoundTripEncodeIsStable(t *testing.T) {
	m := buildModule(t)
	first := m.Encode()
	decoded, err := native.Decode(first)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	second := decoded.Encode()
	if !bytes.Equal(first, second) {
		t.Error("re-encoding a decoded module changed its bytes")
	}
}

// Flipping any single byte of the code, data, or export-table region must
// be caught by the checksum, never silently accepted.
func TestChecksumSensitivity(t *testing.T) {
	m := buildModule(t)
	data := m.Encode()

	for offset := native.HeaderSize; offset < len(data); offset++ {
		bad := append([]byte(nil), data...)
		bad[offset] ^= 0x01
		if _, err := native.Decode(bad); err == nil {
			t.Fatalf("flipping byte %d was accepted", offset)
		}
	}
}

func TestChecksumMismatchKind(t *testing.T) {
	m := buildModule(t)
	data := m.Encode()

	bad := append([]byte(nil), data...)
	bad[native.HeaderSize] ^= 0xFF // first code byte
	_, err := native.Decode(bad)
	if !errors.IsKind(err, errors.KindChecksumMismatch) {
		t.Errorf("Decode = %v, want checksum_mismatch", err)
	}
}

// namePaddingOffset locates a padding byte inside the first export
// record's name field: past "add" and its terminator, still inside the
// 256-byte field. The table's count/reserved prefix is 8 bytes.
func namePaddingOffset(h native.Header) int {
	return int(h.ExportTableOffset) + 8 + len("add") + 2
}

// Checksum verification must run over the stored export records, not a
// re-serialization of the parsed exports: re-encoding would zero the
// name padding again and let the corruption slip through.
func TestChecksumCoversExportNamePadding(t *testing.T) {
	m := buildModule(t)
	data := m.Encode()

	bad := append([]byte(nil), data...)
	bad[namePaddingOffset(m.Header())] = 0x41
	if _, err := native.Decode(bad); !errors.IsKind(err, errors.KindChecksumMismatch) {
		t.Errorf("Decode = %v, want checksum_mismatch", err)
	}
}

// Even with a checksum recomputed over the dirty bytes, nonzero name
// padding is not a canonical record and must be rejected.
func TestDirtyNamePaddingRejectedUnderValidChecksum(t *testing.T) {
	m := buildModule(t)
	bad := append([]byte(nil), m.Encode()...)
	h := m.Header()
	bad[namePaddingOffset(h)] = 0x41

	d := crc64.New(crc64.MakeTable(crc64.ECMA))
	d.Write(bad[h.CodeOffset : h.CodeOffset+h.CodeSize])
	d.Write(bad[h.DataOffset : h.DataOffset+h.DataSize])
	records := h.ExportTableOffset + 8
	d.Write(bad[records : records+uint64(h.ExportCount)*280])
	binary.LittleEndian.PutUint64(bad[64:72], d.Sum64())

	if _, err := native.Decode(bad); !errors.IsKind(err, errors.KindInvalidExport) {
		t.Errorf("Decode = %v, want invalid_export", err)
	}
}

func TestWriteFileRejectsInvalidModule(t *testing.T) {
	m := buildModule(t)
	// Shrink the code section under the "add" export's span.
	if err := m.SetCode([]byte{0xC3}, 0); err != nil {
		t.Fatalf("SetCode: %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.native")
	if err := m.WriteFile(path); !errors.IsKind(err, errors.KindInvalidExport) {
		t.Fatalf("WriteFile = %v, want invalid_export", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("invalid container reached disk: %v", err)
	}
}

func TestDecodeTruncatedInput(t *testing.T) {
	m := buildModule(t)
	data := m.Encode()

	for _, n := range []int{0, 1, native.HeaderSize - 1, native.HeaderSize + 2, len(data) - 1} {
		if _, err := native.Decode(data[:n]); err == nil {
			t.Errorf("Decode of %d-byte prefix succeeded", n)
		}
	}
}

func TestDecodeHostileOffsets(t *testing.T) {
	m := buildModule(t)
	data := m.Encode()

	// code_offset at byte 16, code_size at byte 24, export_table_offset at 48.
	tests := []struct {
		name   string
		offset int
	}{
		{"code offset past end", 16},
		{"code size past end", 24},
		{"export table offset past end", 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := append([]byte(nil), data...)
			for i := 0; i < 8; i++ {
				bad[tt.offset+i] = 0xFF
			}
			if _, err := native.Decode(bad); err == nil {
				t.Error("hostile offset accepted")
			}
		})
	}
}

func TestDecodeExportCountDisagreement(t *testing.T) {
	m := buildModule(t)
	data := m.Encode()

	// The export table's own count field sits at export_table_offset.
	tableOffset := int(m.Header().ExportTableOffset)
	bad := append([]byte(nil), data...)
	bad[tableOffset] = bad[tableOffset] + 1
	if _, err := native.Decode(bad); err == nil {
		t.Error("disagreeing export counts accepted")
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := native.ReadFile(filepath.Join(t.TempDir(), "nope.native"))
	if !errors.IsKind(err, errors.KindIO) {
		t.Errorf("ReadFile = %v, want io kind", err)
	}
}

func TestEmptySectionsRoundTrip(t *testing.T) {
	m := native.New(native.ArchARM64, native.KindVM)
	data := m.Encode()
	got, err := native.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Code()) != 0 || len(got.Data()) != 0 || len(got.Exports()) != 0 {
		t.Errorf("expected empty module, got %d/%d/%d", len(got.Code()), len(got.Data()), len(got.Exports()))
	}
}
