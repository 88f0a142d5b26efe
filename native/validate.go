package native

import "github.com/evolvkit/native-runtime/errors"

// Validate checks the header invariants and the integrity checksum.
// Each mismatch yields its own error kind so the loader can log precisely.
func (m *Module) Validate() error {
	if m.header.Magic != Magic {
		return errors.Format(errors.KindBadMagic, "got %#x, want %#x", m.header.Magic, Magic)
	}
	if m.header.Version != Version {
		return errors.Format(errors.KindBadVersion, "got %d, want %d", m.header.Version, Version)
	}
	if !m.header.Architecture.Valid() {
		return errors.Format(errors.KindBadArchitecture, "tag %d out of range", m.header.Architecture)
	}
	if !m.header.Kind.Valid() {
		return errors.Format(errors.KindBadModuleKind, "kind %d out of range", m.header.Kind)
	}

	if err := m.validateExports(); err != nil {
		return err
	}

	if sum := m.Checksum(); sum != m.header.Checksum {
		return errors.Format(errors.KindChecksumMismatch,
			"stored %#x, computed %#x", m.header.Checksum, sum)
	}
	return nil
}

func (m *Module) validateExports() error {
	if len(m.exports) > MaxExports {
		return errors.Format(errors.KindTooManyExports,
			"table holds %d exports, limit %d", len(m.exports), MaxExports)
	}
	seen := make(map[string]struct{}, len(m.exports))
	for _, e := range m.exports {
		if e.Name == "" || len(e.Name) > MaxNameLength {
			return errors.Format(errors.KindInvalidExport, "bad name %q", e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return errors.Format(errors.KindInvalidExport, "duplicate name %q", e.Name)
		}
		seen[e.Name] = struct{}{}
		if !e.Kind.Valid() {
			return errors.Format(errors.KindInvalidExport, "%q: kind %d out of range", e.Name, e.Kind)
		}
		limit := e.sectionLen(m.header)
		if e.Offset+e.Size < e.Offset || e.Offset+e.Size > limit {
			return errors.Format(errors.KindInvalidExport,
				"%q spans [%d, %d) outside %d-byte section", e.Name, e.Offset, e.Offset+e.Size, limit)
		}
	}
	return nil
}
