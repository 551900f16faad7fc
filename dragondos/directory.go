package dragondos

import (
	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
	"github.com/rolfmichelsen/dragontools/sector"
)

const (
	primaryDirectoryTrack = 20
	backupDirectoryTrack  = 16
	sectorsPerHeadTrack   = 18
	directorySectorSize   = 256

	entriesPerDirectorySector = 10
	totalDirectoryEntries     = sectorsPerHeadTrack*entriesPerDirectorySector - 2*entriesPerDirectorySector // sectors 3-18
)

// lsn computes the linear logical sector number for (head,track,sector).
func lsn(head, track, sec, sectorsPerDiskTrack int) int {
	return track*sectorsPerDiskTrack + head*sectorsPerHeadTrack + (sec - 1)
}

// lsnInverse is lsn's inverse.
func lsnInverse(l, sectorsPerDiskTrack int) (head, track, sec int) {
	track = l / sectorsPerDiskTrack
	rem := l % sectorsPerDiskTrack
	head = rem / sectorsPerHeadTrack
	sec = rem%sectorsPerHeadTrack + 1
	return
}

// directoryCache holds the 18 sectors of the primary directory track
// in memory, re-reading them whenever the disk reports a write into
// that track.
//
// Avoids a cyclic disk<->filesystem reference by subscribing to the
// disk's SectorObserver notifications instead of holding a back
// pointer, invalidating this cache on any track-20 write from any
// path, not just this filesystem's own.
type directoryCache struct {
	sectors             [sectorsPerHeadTrack][]byte
	dirty               bool
	sectorsPerDiskTrack int
}

func loadDirectoryCache(d disk.Disk) (*directoryCache, error) {
	sectorsPerDiskTrack := sectorsPerHeadTrack * d.Heads()
	c := &directoryCache{sectorsPerDiskTrack: sectorsPerDiskTrack}
	if err := c.reload(d); err != nil {
		return nil, err
	}
	d.OnSectorWritten(func(id sector.ID) {
		if id.Track == primaryDirectoryTrack {
			c.dirty = true
		}
	})
	return c, nil
}

func (c *directoryCache) reload(d disk.Disk) error {
	for n := 1; n <= sectorsPerHeadTrack; n++ {
		data, err := d.ReadSector(sector.ID{Head: 0, Track: primaryDirectoryTrack, Sector: n})
		if err != nil {
			return err
		}
		buf := make([]byte, directorySectorSize)
		copy(buf, data)
		c.sectors[n-1] = buf
	}
	c.dirty = false
	return nil
}

func (c *directoryCache) refresh(d disk.Disk) error {
	if c.dirty {
		return c.reload(d)
	}
	return nil
}

func (c *directoryCache) bitmap() *Bitmap {
	return newBitmap(c.sectors[0], c.sectors[1])
}

// entry reads directory index i (must already be refreshed).
func (c *directoryCache) entry(i int) (*Entry, error) {
	sec := 2 + i/entriesPerDirectorySector
	off := (i % entriesPerDirectorySector) * entrySize
	return UnmarshalEntry(c.sectors[sec][off : off+entrySize])
}

// setEntry writes index i into the in-memory cache only; the caller
// must flush to persist.
func (c *directoryCache) setEntry(i int, e *Entry) {
	sec := 2 + i/entriesPerDirectorySector
	off := (i % entriesPerDirectorySector) * entrySize
	copy(c.sectors[sec][off:off+entrySize], e.Marshal())
}

// flush writes the cache to both the primary and backup directory
// tracks, clearing the dirty flag between the two writes so the
// backup write doesn't trigger a needless re-read.
func (c *directoryCache) flush(d disk.Disk) error {
	for n := 1; n <= sectorsPerHeadTrack; n++ {
		if err := d.WriteSector(sector.ID{Head: 0, Track: primaryDirectoryTrack, Sector: n}, c.sectors[n-1]); err != nil {
			return err
		}
	}
	c.dirty = false
	for n := 1; n <= sectorsPerHeadTrack; n++ {
		if err := d.WriteSector(sector.ID{Head: 0, Track: backupDirectoryTrack, Sector: n}, c.sectors[n-1]); err != nil {
			return err
		}
	}
	return nil
}

// readBackup reads the backup directory track's 18 sectors, for
// Check's byte-identical comparison.
func readBackup(d disk.Disk) ([][]byte, error) {
	out := make([][]byte, sectorsPerHeadTrack)
	for n := 1; n <= sectorsPerHeadTrack; n++ {
		data, err := d.ReadSector(sector.ID{Head: 0, Track: backupDirectoryTrack, Sector: n})
		if err != nil {
			return nil, err
		}
		out[n-1] = data
	}
	return out, nil
}

// validateOpenGeometry checks DragonDos's supported-geometry and
// geometry-bytes rules at open time.
func validateOpenGeometry(d disk.Disk, c *directoryCache) error {
	if d.Heads() != 1 && d.Heads() != 2 {
		return diskerr.Geometryf("DragonDos requires 1 or 2 heads, got %d", d.Heads())
	}
	if d.Tracks() != 40 && d.Tracks() != 80 {
		return diskerr.Geometryf("DragonDos requires 40 or 80 tracks, got %d", d.Tracks())
	}
	if d.SectorsPerTrack() != sectorsPerHeadTrack || d.SectorSize() != directorySectorSize {
		return diskerr.Geometryf("DragonDos requires %d sectors/track of %d bytes", sectorsPerHeadTrack, directorySectorSize)
	}
	if !c.bitmap().ValidateGeometry(d.Tracks(), c.sectorsPerDiskTrack) {
		return diskerr.FilesystemConsistencyf("directory-track geometry bytes disagree with disk geometry")
	}
	return nil
}
