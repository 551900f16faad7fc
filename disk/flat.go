package disk

import (
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
	"github.com/rolfmichelsen/dragontools/sector"
)

// flatDisk is the shared mechanics of every header-prefixed flat image
// backend: geometry, a modified flag, a writeable flag, and the
// entire image held as a single in-memory byte buffer. Per-format
// differences collapse to two numbers: headerSize (bytes skipped
// before sector data begins) and stride (bytes per sector slot,
// which includes a trailing attribute byte for some JVC images).
//
// Generalizes a single fixed geometry into an arbitrary
// (heads,tracks,sectors,size) one, with the whole image held in memory.
type flatDisk struct {
	heads           int
	tracks          int
	sectorsPerTrack int
	sectorSize      int
	stride          int
	headerSize      int
	writeable       bool
	modified        bool
	data            []byte

	readObservers    []SectorObserver
	writtenObservers []SectorObserver
}

func (d *flatDisk) Heads() int           { return d.heads }
func (d *flatDisk) Tracks() int          { return d.tracks }
func (d *flatDisk) SectorsPerTrack() int { return d.sectorsPerTrack }
func (d *flatDisk) SectorSize() int      { return d.sectorSize }
func (d *flatDisk) IsWriteable() bool    { return d.writeable }

func (d *flatDisk) OnSectorRead(obs SectorObserver) {
	d.readObservers = append(d.readObservers, obs)
}

func (d *flatDisk) OnSectorWritten(obs SectorObserver) {
	d.writtenObservers = append(d.writtenObservers, obs)
}

func (d *flatDisk) notifyRead(id sector.ID) {
	for _, obs := range d.readObservers {
		obs(id)
	}
}

func (d *flatDisk) notifyWritten(id sector.ID) {
	for _, obs := range d.writtenObservers {
		obs(id)
	}
}

func (d *flatDisk) SectorExists(id sector.ID) bool {
	return id.Head >= 0 && id.Head < d.heads &&
		id.Track >= 0 && id.Track < d.tracks &&
		id.Sector >= 1 && id.Sector <= d.sectorsPerTrack
}

// sectorOffset returns the byte offset of a sector's payload within
// the flat data buffer. Iteration order is (head,track,sector) over
// the Cartesian product: track varies slowest.
func (d *flatDisk) sectorOffset(id sector.ID) (int, error) {
	if !d.SectorExists(id) {
		return 0, diskerr.SectorNotFoundf("sector %s not present on this disk", id)
	}
	linear := id.Track*d.sectorsPerTrack*d.heads + id.Head*d.sectorsPerTrack + (id.Sector - 1)
	return linear*d.stride + d.headerSize, nil
}

func (d *flatDisk) ReadSector(id sector.ID) ([]byte, error) {
	off, err := d.sectorOffset(id)
	if err != nil {
		return nil, err
	}
	out := make([]byte, d.sectorSize)
	copy(out, d.data[off:off+d.sectorSize])
	d.notifyRead(id)
	return out, nil
}

func (d *flatDisk) ReadSectorInto(id sector.ID, buf []byte) (int, error) {
	off, err := d.sectorOffset(id)
	if err != nil {
		return 0, err
	}
	n := copy(buf, d.data[off:off+d.sectorSize])
	d.notifyRead(id)
	return n, nil
}

func (d *flatDisk) WriteSector(id sector.ID, data []byte) error {
	if !d.writeable {
		return diskerr.DiskNotWriteablef("disk is not writeable")
	}
	off, err := d.sectorOffset(id)
	if err != nil {
		return err
	}
	copy(d.data[off:off+d.sectorSize], sector.TruncateOrPad(data, d.sectorSize))
	d.modified = true
	d.notifyWritten(id)
	return nil
}

func (d *flatDisk) AllSectors() []sector.ID {
	ids := make([]sector.ID, 0, d.heads*d.tracks*d.sectorsPerTrack)
	for t := 0; t < d.tracks; t++ {
		for h := 0; h < d.heads; h++ {
			for s := 1; s <= d.sectorsPerTrack; s++ {
				ids = append(ids, sector.ID{Head: h, Track: t, Sector: s})
			}
		}
	}
	return ids
}

// Bytes returns the entire image, header included - the form a flat
// backend's Flush writes back out.
func (d *flatDisk) Bytes() []byte { return d.data }
