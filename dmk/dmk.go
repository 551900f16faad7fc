// Package dmk implements the DMK floppy image format: a 16-byte file
// header followed by one fixed-length encoded track per (head,track),
// each beginning with a sector-offset table instead of being scanned
// byte-by-byte for sync marks.
//
// Follows the same flat-image backend shape as the other formats
// (geometry accessors, Disk contract, notifications); no DMK-specific
// reference implementation was available, so the on-disk layout is
// built from the format description directly rather than an observed
// implementation.
package dmk

import (
	"encoding/binary"

	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/internal/crc16"
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
	"github.com/rolfmichelsen/dragontools/sector"
)

const (
	fileHeaderSize   = 16
	offsetTableSlots = 40
	offsetTableBytes = offsetTableSlots * 2
	offsetFlagMask   = 0x7FFF

	idAddressMark   = 0xFE
	dataAddressMark = 0xFB
	gapZeroRun      = 12

	writeProtectByte = 0
	tracksByte       = 1
	trackLenLo       = 2
	trackLenHi       = 3
	flagsByte        = 4
)

// header is a DMK file's 16-byte header.
type header struct {
	WriteProtected bool
	Tracks         int
	TrackLength    int
	SingleSided    bool
}

func unmarshalHeader(data []byte) (*header, error) {
	if len(data) < fileHeaderSize {
		return nil, diskerr.ImageFormatf("DMK image is only %d bytes, need at least %d for the header", len(data), fileHeaderSize)
	}
	trackLength := int(binary.LittleEndian.Uint16(data[trackLenLo : trackLenHi+1]))
	flags := data[flagsByte]
	return &header{
		WriteProtected: data[writeProtectByte] != 0,
		Tracks:         int(data[tracksByte]),
		TrackLength:    trackLength,
		SingleSided:    flags&0x10 != 0,
	}, nil
}

func (h *header) marshal() []byte {
	buf := make([]byte, fileHeaderSize)
	if h.WriteProtected {
		buf[writeProtectByte] = 0xFF
	}
	buf[tracksByte] = byte(h.Tracks)
	binary.LittleEndian.PutUint16(buf[trackLenLo:trackLenHi+1], uint16(h.TrackLength))
	if h.SingleSided {
		buf[flagsByte] = 0x10
	}
	return buf
}

func (h *header) heads() int {
	if h.SingleSided {
		return 1
	}
	return 2
}

// Disk is a DMK disk image.
type Disk struct {
	header     *header
	image      []byte
	sectorSize int
	writeable  bool

	readObservers    []disk.SectorObserver
	writtenObservers []disk.SectorObserver
}

var _ disk.Disk = (*Disk)(nil)

func (d *Disk) Heads() int           { return d.header.heads() }
func (d *Disk) Tracks() int          { return d.header.Tracks }
func (d *Disk) SectorsPerTrack() int { return 18 }
func (d *Disk) SectorSize() int      { return d.sectorSize }
func (d *Disk) IsWriteable() bool    { return d.writeable }

func (d *Disk) OnSectorRead(obs disk.SectorObserver)    { d.readObservers = append(d.readObservers, obs) }
func (d *Disk) OnSectorWritten(obs disk.SectorObserver) { d.writtenObservers = append(d.writtenObservers, obs) }

// Open parses a DMK image already held in memory.
func Open(data []byte, sectorSize int, writeable bool) (*Disk, error) {
	h, err := unmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	needed := fileHeaderSize + h.heads()*h.Tracks*h.TrackLength
	if len(data) < needed {
		return nil, diskerr.ImageFormatf("DMK image is %d bytes, geometry requires at least %d", len(data), needed)
	}
	return &Disk{header: h, image: data, sectorSize: sectorSize, writeable: writeable}, nil
}

func (d *Disk) trackOffset(head, track int) int {
	linear := track*d.header.heads() + head
	return fileHeaderSize + linear*d.header.TrackLength
}

func (d *Disk) SectorExists(id sector.ID) bool {
	if id.Head < 0 || id.Head >= d.Heads() || id.Track < 0 || id.Track >= d.Tracks() || id.Sector < 1 {
		return false
	}
	_, _, err := d.findSectorID(id)
	return err == nil
}

// offsetTable reads the sector-offset pointers at the start of a
// track, stopping at the first zero entry.
func (d *Disk) offsetTable(head, track int) []int {
	base := d.trackOffset(head, track)
	table := d.image[base : base+offsetTableBytes]
	offsets := make([]int, 0, offsetTableSlots)
	for i := 0; i < offsetTableSlots; i++ {
		raw := binary.LittleEndian.Uint16(table[i*2 : i*2+2])
		if raw == 0 {
			break
		}
		offsets = append(offsets, int(raw&offsetFlagMask))
	}
	return offsets
}

// findSectorID scans the offset table for id's ID record, returning
// the absolute image offset of the byte right after its ID
// record's CRC, and the size code stored in that record.
func (d *Disk) findSectorID(id sector.ID) (idEnd int, sizeCode int, err error) {
	trackBase := d.trackOffset(id.Head, id.Track)
	for _, off := range d.offsetTable(id.Head, id.Track) {
		pos := trackBase + off
		if pos+1 > len(d.image) || d.image[pos] != idAddressMark {
			continue
		}
		idrec := d.image[pos+1 : pos+6]
		if int(idrec[0]) == id.Track && int(idrec[1]) == id.Head && int(idrec[2]) == id.Sector {
			return pos + 1 + 6, int(idrec[3]), nil
		}
	}
	return 0, 0, diskerr.SectorNotFoundf("sector %s not found on track", id)
}

// findDataRecord scans forward from an absolute image position, up to
// the end of the track starting at image offset trackBase, for the
// gap of gapZeroRun zero bytes that precedes DMK's data-address-mark -
// unlike HFE, DMK stores decoded bytes directly and has no A1 sync
// bytes in this gap, so the codec must not look for MFM sync here.
func (d *Disk) findDataRecord(trackBase, from int) (int, error) {
	pos := from
	limit := trackBase + d.header.TrackLength
	for pos < limit {
		zeros := 0
		for zeros < gapZeroRun && pos+zeros < limit && d.image[pos+zeros] == 0x00 {
			zeros++
		}
		if zeros >= gapZeroRun {
			markPos := pos + zeros
			if markPos < limit && d.image[markPos] == dataAddressMark {
				return markPos, nil
			}
		}
		pos++
	}
	return 0, diskerr.SectorNotFoundf("no data record found")
}

func (d *Disk) ReadSector(id sector.ID) ([]byte, error) {
	idEnd, sizeCode, err := d.findSectorID(id)
	if err != nil {
		return nil, err
	}
	trackBase := d.trackOffset(id.Head, id.Track)
	mark, err := d.findDataRecord(trackBase, idEnd)
	if err != nil {
		return nil, err
	}
	size := sector.SizeFromCode(sizeCode)
	payload := make([]byte, size)
	copy(payload, d.image[mark+1:mark+1+size])
	for _, obs := range d.readObservers {
		obs(id)
	}
	return payload, nil
}

func (d *Disk) ReadSectorInto(id sector.ID, buf []byte) (int, error) {
	data, err := d.ReadSector(id)
	if err != nil {
		return 0, err
	}
	return copy(buf, data), nil
}

func (d *Disk) WriteSector(id sector.ID, data []byte) error {
	if !d.writeable {
		return diskerr.DiskNotWriteablef("disk is not writeable")
	}
	idEnd, sizeCode, err := d.findSectorID(id)
	if err != nil {
		return err
	}
	trackBase := d.trackOffset(id.Head, id.Track)
	mark, err := d.findDataRecord(trackBase, idEnd)
	if err != nil {
		return err
	}
	size := sector.SizeFromCode(sizeCode)
	payload := sector.TruncateOrPad(data, size)
	copy(d.image[mark+1:mark+1+size], payload)
	crc := crc16.Compute(append([]byte{0xA1, 0xA1, 0xA1, dataAddressMark}, payload...))
	d.image[mark+1+size] = byte(crc >> 8)
	d.image[mark+2+size] = byte(crc)
	for _, obs := range d.writtenObservers {
		obs(id)
	}
	return nil
}

func (d *Disk) AllSectors() []sector.ID {
	var ids []sector.ID
	for t := 0; t < d.Tracks(); t++ {
		for h := 0; h < d.Heads(); h++ {
			for _, off := range d.offsetTable(h, t) {
				pos := d.trackOffset(h, t) + off
				if pos+3 > len(d.image) {
					continue
				}
				ids = append(ids, sector.ID{Head: h, Track: t, Sector: int(d.image[pos+3])})
			}
		}
	}
	return ids
}

// Flush is a no-op beyond reporting success: WriteSector already
// mutates the in-memory image directly.
func (d *Disk) Flush() error { return nil }

// Bytes returns the whole image, file header included.
func (d *Disk) Bytes() []byte { return d.image }

// Create formats a new DMK image of the given geometry, following the
// same mechanics as DMK's read path (sector-offset table, no MFM, a
// 12-zero-byte GAP2) run in reverse, laying sectors out in ascending
// physical order.
func Create(heads, tracks, sectorsPerTrack, sectorSize int) (*Disk, error) {
	sizeCode, err := sector.SizeCode(sectorSize)
	if err != nil {
		return nil, err
	}
	if heads != 1 && heads != 2 {
		return nil, diskerr.Geometryf("DMK images support 1 or 2 heads, got %d", heads)
	}
	if sectorsPerTrack > offsetTableSlots {
		return nil, diskerr.Geometryf("DMK offset table holds at most %d sectors per track, got %d", offsetTableSlots, sectorsPerTrack)
	}

	const gapBytes = 16
	idRecordLen := 1 + 5 + 2
	dataRecordLen := 1 + sectorSize + 2
	perSector := gapBytes + idRecordLen + gapZeroRun + dataRecordLen
	trackLength := offsetTableBytes + sectorsPerTrack*perSector

	h := &header{Tracks: tracks, TrackLength: trackLength, SingleSided: heads == 1}
	image := make([]byte, fileHeaderSize+heads*tracks*trackLength)
	copy(image, h.marshal())

	d := &Disk{header: h, image: image, sectorSize: sectorSize, writeable: true}

	for t := 0; t < tracks; t++ {
		for head := 0; head < heads; head++ {
			trackBase := d.trackOffset(head, t)
			offsets := make([]int, sectorsPerTrack)
			pos := offsetTableBytes
			for i := 0; i < sectorsPerTrack; i++ {
				secNum := i + 1
				pos += gapBytes
				offsets[i] = pos

				idrec := []byte{idAddressMark, byte(t), byte(head), byte(secNum), byte(sizeCode)}
				copy(image[trackBase+pos:], idrec)
				crc := crc16.Compute(append([]byte{0xA1, 0xA1, 0xA1}, idrec...))
				image[trackBase+pos+5] = byte(crc >> 8)
				image[trackBase+pos+6] = byte(crc)
				pos += idRecordLen

				pos += gapZeroRun // left zero by make(); that is GAP2
				payload := make([]byte, sectorSize)
				image[trackBase+pos] = dataAddressMark
				copy(image[trackBase+pos+1:], payload)
				dcrc := crc16.Compute(append([]byte{0xA1, 0xA1, 0xA1, dataAddressMark}, payload...))
				image[trackBase+pos+1+sectorSize] = byte(dcrc >> 8)
				image[trackBase+pos+2+sectorSize] = byte(dcrc)
				pos += dataRecordLen
			}
			for i, off := range offsets {
				binary.LittleEndian.PutUint16(image[trackBase+i*2:trackBase+i*2+2], uint16(off))
			}
		}
	}
	return d, nil
}
