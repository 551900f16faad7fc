package hfe

import (
	"encoding/binary"

	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
	"github.com/rolfmichelsen/dragontools/sector"
)

// Track encoding byte values, per the HFE format.
const (
	EncodingISOIBMMFM = 0x00
	EncodingAmigaMFM  = 0x01
	EncodingISOIBMFM  = 0x02
	EncodingEmuFM     = 0x03
	EncodingUnknown   = 0xFF
)

// Floppy interface mode byte values, per the HFE format.
const (
	InterfaceIBMPCDD          = 0x00
	InterfaceIBMPCHD          = 0x01
	InterfaceAtariSTDD        = 0x02
	InterfaceAtariSTHD        = 0x03
	InterfaceAmigaDD          = 0x04
	InterfaceAmigaHD          = 0x05
	InterfaceCPCDD            = 0x06
	InterfaceGenericShugartDD = 0x07
	InterfaceIBMPCED          = 0x08
)

const (
	signature          = "HXCPICFE"
	headerBlock        = 0
	supportedRevision  = 0
	headerSize         = 16
)

// header is the HFE image header occupying block 0.
type header struct {
	FormatRevision      byte
	NumberOfTrack       byte
	NumberOfSide        byte
	TrackEncoding       byte
	BitRate             uint16
	FloppyRPM           uint16
	FloppyInterfaceMode byte
	TrackListOffset     uint16
	WriteAllowed        byte
	SingleStep          byte
	Track0S0AltEncoding byte
	Track0S0Encoding    byte
	Track0S1AltEncoding byte
	Track0S1Encoding    byte
}

func unmarshalHeader(data []byte) (*header, error) {
	if len(data) < headerSize+8 || string(data[0:8]) != signature {
		return nil, diskerr.ImageFormatf("HFE signature is %q, want %q", data[0:8], signature)
	}
	b := data[8:]
	h := &header{
		FormatRevision:      b[0],
		NumberOfTrack:       b[1],
		NumberOfSide:        b[2],
		TrackEncoding:       b[3],
		BitRate:             binary.LittleEndian.Uint16(b[4:6]),
		FloppyRPM:           binary.LittleEndian.Uint16(b[6:8]),
		FloppyInterfaceMode: b[8],
		TrackListOffset:     binary.LittleEndian.Uint16(b[10:12]),
		WriteAllowed:        b[12],
		SingleStep:          b[13],
		Track0S0AltEncoding: b[14],
		Track0S0Encoding:    b[15],
	}
	if len(b) > 17 {
		h.Track0S1AltEncoding = b[16]
		h.Track0S1Encoding = b[17]
	}
	if h.FormatRevision != supportedRevision {
		return nil, diskerr.ImageFormatf("unsupported HFE format revision %d", h.FormatRevision)
	}
	if h.TrackEncoding != EncodingISOIBMMFM {
		return nil, diskerr.ImageFormatf("unsupported HFE track encoding %#02x, only ISOIBM_MFM is supported", h.TrackEncoding)
	}
	if h.FloppyInterfaceMode != InterfaceGenericShugartDD {
		return nil, diskerr.ImageFormatf("unsupported HFE interface mode %#02x, only GENERIC_SHUGART_DD is supported", h.FloppyInterfaceMode)
	}
	if h.NumberOfSide != 1 && h.NumberOfSide != 2 {
		return nil, diskerr.ImageFormatf("unsupported HFE side count %d", h.NumberOfSide)
	}
	return h, nil
}

func (h *header) marshal() []byte {
	buf := make([]byte, blockSize)
	copy(buf[0:8], signature)
	b := buf[8:]
	b[0] = h.FormatRevision
	b[1] = h.NumberOfTrack
	b[2] = h.NumberOfSide
	b[3] = h.TrackEncoding
	binary.LittleEndian.PutUint16(b[4:6], h.BitRate)
	binary.LittleEndian.PutUint16(b[6:8], h.FloppyRPM)
	b[8] = h.FloppyInterfaceMode
	binary.LittleEndian.PutUint16(b[10:12], h.TrackListOffset)
	b[12] = h.WriteAllowed
	b[13] = h.SingleStep
	b[14] = h.Track0S0AltEncoding
	b[15] = h.Track0S0Encoding
	b[16] = h.Track0S1AltEncoding
	b[17] = h.Track0S1Encoding
	return buf
}

// trackListEntry is one (first_block_index, length_in_bytes) LE16
// pair from the track-list block.
type trackListEntry struct {
	FirstBlock int
	Length     int
}

func readTrackList(image []byte, listBlock, count int) []trackListEntry {
	off := listBlock * blockSize
	entries := make([]trackListEntry, count)
	for i := 0; i < count; i++ {
		e := image[off+i*4 : off+i*4+4]
		entries[i] = trackListEntry{
			FirstBlock: int(binary.LittleEndian.Uint16(e[0:2])),
			Length:     int(binary.LittleEndian.Uint16(e[2:4])),
		}
	}
	return entries
}

func writeTrackList(image []byte, listBlock int, entries []trackListEntry) {
	off := listBlock * blockSize
	for i, e := range entries {
		b := image[off+i*4 : off+i*4+4]
		binary.LittleEndian.PutUint16(b[0:2], uint16(e.FirstBlock))
		binary.LittleEndian.PutUint16(b[2:4], uint16(e.Length))
	}
}

// Disk is an HFE disk image: header, track-list block, and a
// WD279X-encoded track per (head,track) reached through Track.
//
// Follows the same Disk-contract shape as the other flat-image backends
// (geometry accessors, notifications, Flush); header/track-list layout
// matches the HFEv1 format, sergev-fdx's hfe-img.go among the references
// for it. The sector codec itself lives in track.go.
type Disk struct {
	header      *header
	tracks      []trackListEntry
	image       []byte
	sectorsPerTrack int
	sectorSize  int
	writeable   bool

	readObservers    []disk.SectorObserver
	writtenObservers []disk.SectorObserver
}

var _ disk.Disk = (*Disk)(nil)

func (d *Disk) Heads() int           { return int(d.header.NumberOfSide) }
func (d *Disk) Tracks() int          { return int(d.header.NumberOfTrack) }
func (d *Disk) SectorsPerTrack() int { return d.sectorsPerTrack }
func (d *Disk) SectorSize() int      { return d.sectorSize }
func (d *Disk) IsWriteable() bool    { return d.writeable }

func (d *Disk) OnSectorRead(obs disk.SectorObserver)    { d.readObservers = append(d.readObservers, obs) }
func (d *Disk) OnSectorWritten(obs disk.SectorObserver) { d.writtenObservers = append(d.writtenObservers, obs) }

// Open parses an HFE image already held in memory. sectorsPerTrack and
// sectorSize describe the logical geometry this image was formatted
// with; HFE itself does not record them directly, so the caller
// supplies the values it expects (dragondos always opens with 18x256).
func Open(data []byte, sectorsPerTrack, sectorSize int, writeable bool) (*Disk, error) {
	h, err := unmarshalHeader(data)
	if err != nil {
		return nil, err
	}
	if h.TrackListOffset == 0 || int(h.TrackListOffset)*blockSize >= len(data) {
		return nil, diskerr.ImageFormatf("HFE track-list offset %d is out of range", h.TrackListOffset)
	}
	entries := readTrackList(data, int(h.TrackListOffset), int(h.NumberOfTrack))
	return &Disk{
		header:          h,
		tracks:          entries,
		image:           data,
		sectorsPerTrack: sectorsPerTrack,
		sectorSize:      sectorSize,
		writeable:       writeable,
	}, nil
}

func (d *Disk) SectorExists(id sector.ID) bool {
	return id.Head >= 0 && id.Head < d.Heads() &&
		id.Track >= 0 && id.Track < d.Tracks() &&
		id.Sector >= 1 && id.Sector <= d.sectorsPerTrack
}

func (d *Disk) trackFor(id sector.ID) (*Track, error) {
	if !d.SectorExists(id) {
		return nil, diskerr.SectorNotFoundf("sector %s not present on this disk", id)
	}
	entry := d.tracks[id.Track]
	raw, err := LoadRawTrack(d.image, entry.FirstBlock, entry.Length, id.Head)
	if err != nil {
		return nil, err
	}
	return NewTrack(raw), nil
}

func (d *Disk) ReadSector(id sector.ID) ([]byte, error) {
	tr, err := d.trackFor(id)
	if err != nil {
		return nil, err
	}
	s, err := tr.ReadSector(id, d.sectorSize)
	if err != nil {
		return nil, err
	}
	for _, obs := range d.readObservers {
		obs(id)
	}
	return s.Bytes, nil
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
	entry := d.tracks[id.Track]
	raw, err := LoadRawTrack(d.image, entry.FirstBlock, entry.Length, id.Head)
	if err != nil {
		return err
	}
	tr := NewTrack(raw)
	if err := tr.WriteSector(id, data, d.sectorSize); err != nil {
		return err
	}
	d.image = raw.StoreInto(d.image, entry.FirstBlock, id.Head)
	for _, obs := range d.writtenObservers {
		obs(id)
	}
	return nil
}

func (d *Disk) AllSectors() []sector.ID {
	ids := make([]sector.ID, 0, d.Heads()*d.Tracks()*d.sectorsPerTrack)
	for t := 0; t < d.Tracks(); t++ {
		for h := 0; h < d.Heads(); h++ {
			for s := 1; s <= d.sectorsPerTrack; s++ {
				ids = append(ids, sector.ID{Head: h, Track: t, Sector: s})
			}
		}
	}
	return ids
}

// Flush is a no-op beyond reporting success: WriteSector already
// re-interleaves changes directly into the in-memory image.
func (d *Disk) Flush() error { return nil }

// Bytes returns the whole image, header and track-list block
// included.
func (d *Disk) Bytes() []byte { return d.image }

// Create formats a new HFE image of the given geometry: header block,
// track-list block, and one freshly initialized track per
// (head,track), sectors laid out in the order InterleavedSectorOrder
// gives for the interleave argument.
func Create(heads, tracks, sectorsPerTrack, sectorSize, interleave int) (*Disk, error) {
	sizeCode, err := sector.SizeCode(sectorSize)
	if err != nil {
		return nil, err
	}
	if heads != 1 && heads != 2 {
		return nil, diskerr.Geometryf("HFE images support 1 or 2 heads, got %d", heads)
	}

	h := &header{
		FormatRevision:      supportedRevision,
		NumberOfTrack:       byte(tracks),
		NumberOfSide:        byte(heads),
		TrackEncoding:       EncodingISOIBMMFM,
		BitRate:             250,
		FloppyRPM:           300,
		FloppyInterfaceMode: InterfaceGenericShugartDD,
		TrackListOffset:     1,
		WriteAllowed:        0xFF,
		Track0S0Encoding:    EncodingISOIBMMFM,
		Track0S1Encoding:    EncodingISOIBMMFM,
	}

	image := make([]byte, blockSize*2)
	copy(image[:blockSize], h.marshal())

	entries := make([]trackListEntry, tracks)
	nextBlock := 2
	for t := 0; t < tracks; t++ {
		order := InterleavedSectorOrder(1, sectorsPerTrack, interleave)
		ids := make([]sector.ID, len(order))

		var sideBlocks int
		rawPerSide := make([]*RawTrack, heads)
		for head := 0; head < heads; head++ {
			for i, secNum := range order {
				ids[i] = sector.ID{Head: head, Track: t, Sector: secNum}
			}
			raw := NewRawTrack()
			tr := NewTrack(raw)
			if err := tr.Initialize(ids, sizeCode, sectorSize); err != nil {
				return nil, err
			}
			rawPerSide[head] = raw
			if int(raw.Len()) > sideBlocks*halfBlockSize {
				sideBlocks = raw.blocksNeeded()
			}
		}
		for head := 0; head < heads; head++ {
			image = rawPerSide[head].StoreInto(image, nextBlock, head)
		}
		entries[t] = trackListEntry{FirstBlock: nextBlock, Length: int(rawPerSide[0].Len())}
		nextBlock += sideBlocks
	}

	full := make([]byte, nextBlock*blockSize)
	copy(full, image)
	writeTrackList(full, 1, entries)

	return &Disk{
		header:          h,
		tracks:          entries,
		image:           full,
		sectorsPerTrack: sectorsPerTrack,
		sectorSize:      sectorSize,
		writeable:       true,
	}, nil
}
