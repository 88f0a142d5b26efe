//go:build !(darwin || freebsd || linux || windows)

package mexec

// Supported reports whether executable mappings are available.
func Supported() bool {
	return false
}

// Map copies code into a fresh executable mapping.
func Map(code []byte) (*Region, error) {
	return nil, ErrUnsupported
}

// Release frees the region.
func (r *Region) Release() error {
	return nil
}
