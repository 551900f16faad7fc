// Package sector holds the value types shared by every disk image
// backend: the (head,track,sector) coordinate and the sector payload
// itself.
//
// Generalizes a single-sided 35-track coordinate into a two-sided,
// variable-geometry model.
package sector

import "fmt"

// ID is a (head,track,sector) coordinate. Heads and tracks are
// 0-indexed; sectors start at 1.
type ID struct {
	Head   int
	Track  int
	Sector int
}

// String renders an ID for diagnostics and error messages.
func (id ID) String() string {
	return fmt.Sprintf("head=%d track=%d sector=%d", id.Head, id.Track, id.Sector)
}

// Sector is a sector's payload plus its identity. CRC is only
// meaningful for the track-encoded formats (HFE, DMK); it is left
// zero by the flat-image backends.
type Sector struct {
	ID    ID
	Size  int
	Bytes []byte
	CRC   uint16
}

// SizeCode returns log2(size/128), the WD279X on-disk encoding of a
// sector size (128 << SizeCode == Size).
func SizeCode(size int) (int, error) {
	for code, sz := 0, 128; sz <= 1024; code, sz = code+1, sz<<1 {
		if sz == size {
			return code, nil
		}
	}
	return 0, fmt.Errorf("sector size %d is not one of 128,256,512,1024", size)
}

// SizeFromCode returns 128 << code, the sector size for a given
// WD279X size code.
func SizeFromCode(code int) int {
	return 128 << uint(code)
}

// TruncateOrPad returns data truncated or zero-padded to exactly size
// bytes, per the sector-write contract (a write of a short buffer pads
// with zeros; a write of a long buffer truncates).
func TruncateOrPad(data []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}
