package disk

import (
	"encoding/binary"

	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

const (
	vdkMagic             = "dk"
	vdkMinHeaderSize      = 12
	vdkSectorsPerTrack    = 18
	vdkSectorSize         = 256
	vdkHeaderVersionMajor = 1
	vdkHeaderVersionMinor = 0
)

// Vdk is a flat VDK disk image: a >=12-byte header beginning with the
// ASCII magic "dk", followed by heads*tracks*18*256 raw payload bytes.
// VDK's sector size is always 256.
type Vdk struct {
	flatDisk
}

// OpenVdk parses a VDK image already held in memory.
func OpenVdk(data []byte, writeable bool) (*Vdk, error) {
	if len(data) < vdkMinHeaderSize {
		return nil, diskerr.ImageFormatf("VDK image is only %d bytes, need at least %d for the header", len(data), vdkMinHeaderSize)
	}
	if string(data[0:2]) != vdkMagic {
		return nil, diskerr.ImageFormatf("VDK magic bytes are %q, want %q", data[0:2], vdkMagic)
	}
	headerSize := int(binary.LittleEndian.Uint16(data[2:4]))
	if headerSize < vdkMinHeaderSize || headerSize > len(data) {
		return nil, diskerr.ImageFormatf("VDK header length %d is invalid for an image of %d bytes", headerSize, len(data))
	}
	tracks := int(data[6])
	heads := int(data[7])

	payload := len(data) - headerSize
	stride := vdkSectorSize * vdkSectorsPerTrack * heads
	if stride <= 0 || payload != tracks*stride {
		return nil, diskerr.ImageFormatf("VDK image size %d is not consistent with geometry (heads=%d tracks=%d)", len(data), heads, tracks)
	}

	return &Vdk{flatDisk: flatDisk{
		heads:           heads,
		tracks:          tracks,
		sectorsPerTrack: vdkSectorsPerTrack,
		sectorSize:      vdkSectorSize,
		stride:          vdkSectorSize,
		headerSize:      headerSize,
		writeable:       writeable,
		data:            data,
	}}, nil
}

// CreateVdk builds a fresh, fully-writeable VDK image of the given
// geometry. sectorsPerTrack is fixed by the format at 18 and
// sectorSize at 256; both arguments are validated for caller clarity
// rather than accepted.
func CreateVdk(heads, tracks, sectorsPerTrack, sectorSize int) (*Vdk, error) {
	if sectorsPerTrack != vdkSectorsPerTrack {
		return nil, diskerr.Geometryf("VDK images always have %d sectors per track, got %d", vdkSectorsPerTrack, sectorsPerTrack)
	}
	if sectorSize != vdkSectorSize {
		return nil, diskerr.Geometryf("VDK images always have %d-byte sectors, got %d", vdkSectorSize, sectorSize)
	}

	header := make([]byte, vdkMinHeaderSize)
	copy(header[0:2], vdkMagic)
	binary.LittleEndian.PutUint16(header[2:4], uint16(vdkMinHeaderSize))
	header[4] = vdkHeaderVersionMajor
	header[5] = vdkHeaderVersionMinor
	header[6] = byte(tracks)
	header[7] = byte(heads)

	data := make([]byte, len(header)+heads*tracks*vdkSectorsPerTrack*vdkSectorSize)
	copy(data, header)

	return &Vdk{flatDisk: flatDisk{
		heads:           heads,
		tracks:          tracks,
		sectorsPerTrack: vdkSectorsPerTrack,
		sectorSize:      vdkSectorSize,
		stride:          vdkSectorSize,
		headerSize:      len(header),
		writeable:       true,
		data:            data,
	}}, nil
}

// Flush is a no-op beyond reporting success; see Jvc.Flush.
func (d *Vdk) Flush() error {
	d.modified = false
	return nil
}
