package native

import "hash/crc64"

// The container uses CRC-64 with the ECMA-182 polynomial, matching the
// checksum every existing module producer emits.
var crcTable = crc64.MakeTable(crc64.ECMA)

// Checksum computes the module's integrity checksum: a single rolling
// CRC-64 over the concatenation of code, data, and serialized export
// records. Order-sensitive; reordering exports changes the result.
func (m *Module) Checksum() uint64 {
	return rawChecksum(m.code, m.data, encodeExportRecords(m.exports))
}

// rawChecksum folds the three checksummed regions in storage order.
// Decode verifies against the raw bytes as read, so a container whose
// export records differ from their canonical serialization (for example
// nonzero name padding) can never checksum clean.
func rawChecksum(code, data, exportRecords []byte) uint64 {
	d := crc64.New(crcTable)
	d.Write(code)
	d.Write(data)
	d.Write(exportRecords)
	return d.Sum64()
}

// UpdateChecksum recomputes the checksum and stores it in the header.
// Called automatically by Encode and WriteFile.
func (m *Module) UpdateChecksum() {
	m.header.Checksum = m.Checksum()
}
