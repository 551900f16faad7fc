// Package dragondos implements the DragonDos filesystem: a mirrored
// directory-track pair (tracks 20 and 16), a sector-granularity
// allocation bitmap, and main/extension directory entries chained by
// index into multi-extent files.
//
// Directory sectors marshal by fixed byte offset, and chain-walking
// tracks a seen-set to catch cycles in corrupt extent chains.
package dragondos

import (
	"encoding/binary"
	"fmt"
)

// Directory entry flag bits.
const (
	flagExtension     = 1 << 0
	flagProtected     = 1 << 1
	flagEndOfDirectory = 1 << 3
	flagMoreExtensions = 1 << 5
	flagInvalid        = 1 << 7
)

const (
	entrySize          = 25
	mainExtentCount    = 4
	extensionExtentCount = 7
	extentEncodedSize  = 3 // 16-bit LSN + 8-bit length
	filenameFieldSize  = 8
)

// Extent is a contiguous run of LSNs allocated to a file. A zero
// Length marks an unused extent slot.
type Extent struct {
	LSN    int
	Length int // in sectors
}

// Entry is one 25-byte DragonDos directory slot: either a main entry
// (filename plus up to 4 extents) or an extension entry (up to 7
// extents, no filename), distinguished by its Extension flag.
//
// Field counts and sizes are fixed, but no reference image bytes were
// available to pin the exact byte offsets within the 25-byte slot; the
// layout below - flags, then filename (main only), then a fixed extent
// array, then a trailing link/size byte, then zero-padding to 25 bytes
// - is this module's own internally consistent choice, not a recovered
// original layout.
type Entry struct {
	Protected      bool
	Extension      bool
	EndOfDirectory bool
	MoreExtensions bool
	Invalid        bool

	Filename string // main entries only
	Extents  []Extent

	// NextEntry is the chained entry's index, valid when
	// MoreExtensions is set. LastSectorSize is the tail entry's final
	// sector's byte count (0 means 256), valid otherwise. The two
	// share the entry's trailing byte.
	NextEntry      int
	LastSectorSize int
}

func (e *Entry) extentCount() int {
	if e.Extension {
		return extensionExtentCount
	}
	return mainExtentCount
}

// flags packs the entry's boolean fields into the on-disk flags byte.
func (e *Entry) flags() byte {
	var f byte
	if e.Extension {
		f |= flagExtension
	}
	if e.Protected {
		f |= flagProtected
	}
	if e.EndOfDirectory {
		f |= flagEndOfDirectory
	}
	if e.MoreExtensions {
		f |= flagMoreExtensions
	}
	if e.Invalid {
		f |= flagInvalid
	}
	return f
}

// Marshal encodes the entry to its 25-byte on-disk form.
func (e *Entry) Marshal() []byte {
	buf := make([]byte, entrySize)
	buf[0] = e.flags()

	pos := 1
	if !e.Extension {
		name := e.Filename
		if len(name) > filenameFieldSize {
			name = name[:filenameFieldSize]
		}
		copy(buf[pos:pos+filenameFieldSize], name)
		for i := len(name); i < filenameFieldSize; i++ {
			buf[pos+i] = ' '
		}
		pos += filenameFieldSize
	}

	for i := 0; i < e.extentCount(); i++ {
		var ext Extent
		if i < len(e.Extents) {
			ext = e.Extents[i]
		}
		binary.BigEndian.PutUint16(buf[pos:pos+2], uint16(ext.LSN))
		buf[pos+2] = byte(ext.Length)
		pos += extentEncodedSize
	}

	if e.MoreExtensions {
		buf[pos] = byte(e.NextEntry)
	} else {
		buf[pos] = byte(e.LastSectorSize)
	}
	return buf
}

// UnmarshalEntry decodes a 25-byte on-disk directory slot.
func UnmarshalEntry(data []byte) (*Entry, error) {
	if len(data) != entrySize {
		return nil, fmt.Errorf("dragondos: directory entry is %d bytes, want %d", len(data), entrySize)
	}
	flags := data[0]
	e := &Entry{
		Extension:      flags&flagExtension != 0,
		Protected:      flags&flagProtected != 0,
		EndOfDirectory: flags&flagEndOfDirectory != 0,
		MoreExtensions: flags&flagMoreExtensions != 0,
		Invalid:        flags&flagInvalid != 0,
	}

	pos := 1
	if !e.Extension {
		e.Filename = trimTrailingSpaces(string(data[pos : pos+filenameFieldSize]))
		pos += filenameFieldSize
	}

	count := e.extentCount()
	e.Extents = make([]Extent, 0, count)
	for i := 0; i < count; i++ {
		lsn := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		length := int(data[pos+2])
		if length > 0 {
			e.Extents = append(e.Extents, Extent{LSN: lsn, Length: length})
		}
		pos += extentEncodedSize
	}

	if e.MoreExtensions {
		e.NextEntry = int(data[pos])
	} else {
		e.LastSectorSize = int(data[pos])
	}
	return e, nil
}

// IsMainEntry reports whether e is a main (not extension) entry.
func (e *Entry) IsMainEntry() bool { return !e.Extension }

// IsValid reports whether e names a live file: not marked invalid,
// not an end-of-directory marker.
func (e *Entry) IsValid() bool { return !e.Invalid && !e.EndOfDirectory }

func trimTrailingSpaces(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == ' ' {
		end--
	}
	return s[:end]
}

// emptyEntry returns an unused, invalid, end-of-directory slot - the
// value Initialize writes to every one of the 160 directory indices.
func emptyEntry() *Entry {
	return &Entry{Invalid: true, EndOfDirectory: true}
}
