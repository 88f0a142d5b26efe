//go:build darwin || freebsd || linux || windows

package mexec

import (
	"testing"
	"unsafe"
)

func TestMapCopiesCode(t *testing.T) {
	code := []byte{0x90, 0x90, 0xC3}
	r, err := Map(code)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer r.Release()

	if r.Size() != len(code) {
		t.Errorf("Size = %d, want %d", r.Size(), len(code))
	}
	mapped := unsafe.Slice((*byte)(r.Base()), len(code))
	for i, b := range code {
		if mapped[i] != b {
			t.Errorf("byte %d = %#x, want %#x", i, mapped[i], b)
		}
	}
}

func TestAddrBounds(t *testing.T) {
	r, err := Map([]byte{0xC3})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer r.Release()

	if r.Addr(0) == nil {
		t.Error("Addr(0) = nil")
	}
	if r.Addr(1) != nil {
		t.Error("Addr past code size should be nil")
	}
}

func TestMapEmpty(t *testing.T) {
	if _, err := Map(nil); err == nil {
		t.Error("expected error mapping empty code")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	r, err := Map([]byte{0xC3})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := r.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := r.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}
