package disk

// Memory is an in-memory-only disk with no header and no backing
// file: useful for building a filesystem image entirely in memory
// before handing its Bytes() to a real backend's Create, and for
// tests that want a disk without file-format concerns.
type Memory struct {
	flatDisk
}

// NewMemory creates a blank, fully-writeable in-memory disk of the
// given geometry.
func NewMemory(heads, tracks, sectorsPerTrack, sectorSize int) *Memory {
	return &Memory{flatDisk: flatDisk{
		heads:           heads,
		tracks:          tracks,
		sectorsPerTrack: sectorsPerTrack,
		sectorSize:      sectorSize,
		stride:          sectorSize,
		headerSize:      0,
		writeable:       true,
		data:            make([]byte, heads*tracks*sectorsPerTrack*sectorSize),
	}}
}

// Flush is a no-op: a Memory disk has no backing stream to persist to.
func (d *Memory) Flush() error {
	d.modified = false
	return nil
}
