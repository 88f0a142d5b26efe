package binary

import (
	"encoding/binary"
	"fmt"
)

// Reader decodes fixed-width little-endian fields from a byte slice with
// position tracking. All multi-byte fields in the native container are
// little-endian regardless of host, so readers never consult host order.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Seek moves the read position to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return r.WrapError("seek", fmt.Errorf("offset %d outside input of %d bytes", pos, len(r.data)))
	}
	r.pos = pos
	return nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, r.WrapError("read", fmt.Errorf("negative length %d", n))
	}
	if r.pos+n > len(r.data) {
		return nil, r.WrapError("read", fmt.Errorf("need %d bytes, have %d", n, len(r.data)-r.pos))
	}
	buf := make([]byte, n)
	copy(buf, r.data[r.pos:r.pos+n])
	r.pos += n
	return buf, nil
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, r.WrapError("u32", fmt.Errorf("need 4 bytes, have %d", len(r.data)-r.pos))
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadU64 reads a little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, r.WrapError("u64", fmt.Errorf("need 8 bytes, have %d", len(r.data)-r.pos))
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadName reads a fixed-size NUL-padded name field and returns the string
// up to the first NUL. The field must contain at least one NUL so the name
// is bounded by size-1 characters, and every byte after the first NUL must
// also be NUL: only the canonical padding has one valid serialization.
func (r *Reader) ReadName(size int) (string, error) {
	buf, err := r.ReadBytes(size)
	if err != nil {
		return "", err
	}
	for i, b := range buf {
		if b != 0 {
			continue
		}
		for j := i + 1; j < size; j++ {
			if buf[j] != 0 {
				return "", r.WrapError("name", fmt.Errorf("nonzero padding byte at field offset %d", j))
			}
		}
		return string(buf[:i]), nil
	}
	return "", r.WrapError("name", fmt.Errorf("missing NUL terminator in %d-byte name field", size))
}

// ParseError records where in the input a decode failure happened.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("native: %s at offset %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("native: at offset %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapError creates a ParseError at the current position.
func (r *Reader) WrapError(section string, err error) error {
	return &ParseError{
		Position: r.pos,
		Section:  section,
		Err:      err,
	}
}
