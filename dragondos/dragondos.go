package dragondos

import (
	"regexp"
	"strings"

	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
	"github.com/rolfmichelsen/dragontools/sector"
)

// filenamePattern is DragonDos's filename validation rule: 2-8 base
// characters (an alphanumeric first, then alphanumerics or '-'),
// optionally followed by '.' and 0-3 alphanumeric extension characters.
var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{1,7}(\.[A-Za-z0-9]{0,3})?$`)

// FileSystem is an open DragonDos filesystem layered on a disk.Disk.
type FileSystem struct {
	disk      disk.Disk
	cache     *directoryCache
	writeable bool
}

// Open reads the directory track and validates it against the disk's
// own geometry.
func Open(d disk.Disk, writeable bool) (*FileSystem, error) {
	c, err := loadDirectoryCache(d)
	if err != nil {
		return nil, err
	}
	if err := validateOpenGeometry(d, c); err != nil {
		return nil, err
	}
	return &FileSystem{disk: d, cache: c, writeable: writeable}, nil
}

// IsValidFilename reports whether name satisfies the DragonDos
// filename grammar.
func (fs *FileSystem) IsValidFilename(name string) bool {
	return filenamePattern.MatchString(name)
}

// sameName compares filenames case-insensitively, matching DragonDos's
// own uppercase-agnostic directory lookup.
func (fs *FileSystem) sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ListFiles returns the names of every valid main entry.
func (fs *FileSystem) ListFiles() ([]string, error) {
	if err := fs.cache.refresh(fs.disk); err != nil {
		return nil, err
	}
	var names []string
	for i := 0; i < totalDirectoryEntries; i++ {
		e, err := fs.cache.entry(i)
		if err != nil {
			return nil, err
		}
		if e.IsMainEntry() && e.IsValid() {
			names = append(names, e.Filename)
		}
	}
	return names, nil
}

// findMainIndex returns the directory index of name's main entry.
func (fs *FileSystem) findMainIndex(name string) (int, error) {
	if err := fs.cache.refresh(fs.disk); err != nil {
		return 0, err
	}
	for i := 0; i < totalDirectoryEntries; i++ {
		e, err := fs.cache.entry(i)
		if err != nil {
			return 0, err
		}
		if e.IsMainEntry() && e.IsValid() && fs.sameName(e.Filename, name) {
			return i, nil
		}
	}
	return 0, diskerr.FileNotFoundf("file %q not found", name)
}

// FileExists reports whether name has a live main entry.
func (fs *FileSystem) FileExists(name string) (bool, error) {
	_, err := fs.findMainIndex(name)
	if diskerr.IsFileNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// chain is one file's directory-entry chain: entries in link order,
// the directory indices they occupy, the concatenated extent list,
// and the tail entry's LastSectorSize.
type chain struct {
	indices        []int
	entries        []*Entry
	extents        []Extent
	lastSectorSize int
}

func (fs *FileSystem) walkChain(mainIndex int) (*chain, error) {
	c := &chain{}
	seen := map[int]bool{}
	idx := mainIndex
	for {
		if seen[idx] {
			return nil, diskerr.FilesystemConsistencyf("directory chain revisits index %d", idx)
		}
		seen[idx] = true
		e, err := fs.cache.entry(idx)
		if err != nil {
			return nil, err
		}
		c.indices = append(c.indices, idx)
		c.entries = append(c.entries, e)
		c.extents = append(c.extents, e.Extents...)
		if !e.MoreExtensions {
			c.lastSectorSize = e.LastSectorSize
			return c, nil
		}
		idx = e.NextEntry
	}
}

// fileSizeOf computes a chain's file size from its extents: every
// sector but the last counts 256 bytes, and the last counts the chain's
// last-sector byte count.
func fileSizeOf(c *chain) int {
	sum := 0
	for _, e := range c.extents {
		sum += e.Length
	}
	if sum == 0 {
		return 0
	}
	last := c.lastSectorSize
	if last == 0 {
		last = directorySectorSize
	}
	return (sum-1)*directorySectorSize + last
}

// ReadFile reads and decodes a file by name.
func (fs *FileSystem) ReadFile(name string) (*File, error) {
	idx, err := fs.findMainIndex(name)
	if err != nil {
		return nil, err
	}
	c, err := fs.walkChain(idx)
	if err != nil {
		return nil, err
	}
	size := fileSizeOf(c)
	raw := make([]byte, 0, size)
	totalSectors := 0
	for _, e := range c.extents {
		totalSectors += e.Length
	}
	read := 0
	for _, ext := range c.extents {
		for k := 0; k < ext.Length; k++ {
			head, track, sec := lsnInverse(ext.LSN+k, fs.cache.sectorsPerDiskTrack)
			data, err := fs.disk.ReadSector(sector.ID{Head: head, Track: track, Sector: sec})
			if err != nil {
				return nil, err
			}
			read++
			if read == totalSectors {
				last := c.lastSectorSize
				if last == 0 {
					last = directorySectorSize
				}
				raw = append(raw, data[:last]...)
			} else {
				raw = append(raw, data...)
			}
		}
	}
	return decodeFile(raw), nil
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// neededDirectoryEntries computes the minimum number of directory
// entries (one main plus zero or more extensions) whose combined
// extent capacity covers numExtents: the main entry holds up to 4,
// each extension up to 7, so N entries hold 4+7*(N-1) extents.
func neededDirectoryEntries(numExtents int) int {
	if numExtents <= mainExtentCount {
		return 1
	}
	return 1 + ceilDiv(numExtents-mainExtentCount, extensionExtentCount)
}

// maxExtentLength is the largest run a single extent can cover: its
// length is stored in one byte (see encodeExtent).
const maxExtentLength = 255

// allocateExtents is a first-fit allocator: it walks the LSNs in
// ascending order and takes each free run it meets, up to the sectors
// still needed, until needed sectors are covered. Each run is also
// capped at maxExtentLength, splitting any longer contiguous run into
// multiple extents, since an extent's length field is one byte wide.
func (fs *FileSystem) allocateExtents(needed int) ([]Extent, error) {
	bm := fs.cache.bitmap()
	total := fs.disk.Tracks() * fs.cache.sectorsPerDiskTrack
	var extents []Extent
	remaining := needed
	pos := 0
	for remaining > 0 && pos < total {
		if bm.IsAllocated(pos) {
			pos++
			continue
		}
		runStart := pos
		runLen := 0
		for pos < total && !bm.IsAllocated(pos) && runLen < remaining && runLen < maxExtentLength {
			runLen++
			pos++
		}
		extents = append(extents, Extent{LSN: runStart, Length: runLen})
		remaining -= runLen
	}
	if remaining > 0 {
		return nil, diskerr.FilesystemFullf("not enough free space for %d sectors", needed)
	}
	return extents, nil
}

// findFreeEntryIndices returns count free (invalid) directory indices
// in index order.
func (fs *FileSystem) findFreeEntryIndices(count int) ([]int, error) {
	var idxs []int
	for i := 0; i < totalDirectoryEntries && len(idxs) < count; i++ {
		e, err := fs.cache.entry(i)
		if err != nil {
			return nil, err
		}
		if e.Invalid {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) < count {
		return nil, diskerr.DirectoryFullf("need %d free directory entries, found %d", count, len(idxs))
	}
	return idxs, nil
}

// WriteFile validates, allocates, writes, and links a new file.
func (fs *FileSystem) WriteFile(name string, f *File) error {
	if !fs.writeable {
		return diskerr.FilesystemNotWriteablef("filesystem is not writeable")
	}
	if !fs.IsValidFilename(name) {
		return diskerr.InvalidFilenamef("filename %q fails DragonDos naming rules", name)
	}
	if exists, err := fs.FileExists(name); err != nil {
		return err
	} else if exists {
		return diskerr.FileExistsf("file %q already exists", name)
	}

	raw := encodeFile(f)
	count := ceilDiv(len(raw), directorySectorSize)
	lastSectorSize := len(raw) - (count-1)*directorySectorSize
	if count == 0 {
		lastSectorSize = 0
	}

	extents, err := fs.allocateExtents(count)
	if err != nil {
		return err
	}
	entryIdxs, err := fs.findFreeEntryIndices(neededDirectoryEntries(len(extents)))
	if err != nil {
		return err
	}

	bm := fs.cache.bitmap()
	written := 0
	for _, ext := range extents {
		for k := 0; k < ext.Length; k++ {
			chunkStart := written * directorySectorSize
			chunkEnd := chunkStart + directorySectorSize
			if chunkEnd > len(raw) {
				chunkEnd = len(raw)
			}
			chunk := raw[chunkStart:chunkEnd]
			head, track, sec := lsnInverse(ext.LSN+k, fs.cache.sectorsPerDiskTrack)
			if err := fs.disk.WriteSector(sector.ID{Head: head, Track: track, Sector: sec}, chunk); err != nil {
				return err
			}
			bm.SetAllocated(ext.LSN+k, true)
			written++
		}
	}

	buildChainEntries(name, extents, lastSectorSize, entryIdxs, fs.cache)
	return fs.cache.flush(fs.disk)
}

// buildChainEntries distributes extents across the allocated entry
// indices: the main entry carries the filename and up to 4 extents,
// each extension carries up to 7, linked by NextEntry, the tail entry
// carrying LastSectorSize.
func buildChainEntries(name string, extents []Extent, lastSectorSize int, entryIdxs []int, cache *directoryCache) {
	remaining := extents
	for pos, idx := range entryIdxs {
		isMain := pos == 0
		isTail := pos == len(entryIdxs)-1
		capacity := mainExtentCount
		if !isMain {
			capacity = extensionExtentCount
		}
		take := capacity
		if take > len(remaining) {
			take = len(remaining)
		}
		e := &Entry{Extension: !isMain, Extents: append([]Extent(nil), remaining[:take]...)}
		remaining = remaining[take:]
		if isMain {
			e.Filename = name
		}
		if isTail {
			e.MoreExtensions = false
			e.LastSectorSize = lastSectorSize
		} else {
			e.MoreExtensions = true
			e.NextEntry = entryIdxs[pos+1]
		}
		cache.setEntry(idx, e)
	}
}

// DeleteFile invalidates a file's directory chain and frees its
// extents.
func (fs *FileSystem) DeleteFile(name string) error {
	if !fs.writeable {
		return diskerr.FilesystemNotWriteablef("filesystem is not writeable")
	}
	idx, err := fs.findMainIndex(name)
	if err != nil {
		return err
	}
	c, err := fs.walkChain(idx)
	if err != nil {
		return err
	}
	for _, i := range c.indices {
		fs.cache.setEntry(i, &Entry{Invalid: true})
	}
	bm := fs.cache.bitmap()
	for _, ext := range c.extents {
		for k := 0; k < ext.Length; k++ {
			bm.SetAllocated(ext.LSN+k, false)
		}
	}
	return fs.cache.flush(fs.disk)
}

// RenameFile renames a file's main entry without touching its
// extents.
func (fs *FileSystem) RenameFile(oldName, newName string) error {
	if !fs.writeable {
		return diskerr.FilesystemNotWriteablef("filesystem is not writeable")
	}
	if !fs.IsValidFilename(newName) {
		return diskerr.InvalidFilenamef("filename %q fails DragonDos naming rules", newName)
	}
	idx, err := fs.findMainIndex(oldName)
	if err != nil {
		return err
	}
	if exists, err := fs.FileExists(newName); err != nil {
		return err
	} else if exists {
		return diskerr.FileExistsf("file %q already exists", newName)
	}
	e, err := fs.cache.entry(idx)
	if err != nil {
		return err
	}
	e.Filename = newName
	fs.cache.setEntry(idx, e)
	return fs.cache.flush(fs.disk)
}

// Free returns the number of free bytes on the filesystem.
func (fs *FileSystem) Free() (int, error) {
	if err := fs.cache.refresh(fs.disk); err != nil {
		return 0, err
	}
	bm := fs.cache.bitmap()
	total := fs.disk.Tracks() * fs.cache.sectorsPerDiskTrack
	free := 0
	for l := 0; l < total; l++ {
		if !bm.IsAllocated(l) {
			free++
		}
	}
	return free * directorySectorSize, nil
}

// IsSectorAllocated reports a sector's allocation status in the
// bitmap.
func (fs *FileSystem) IsSectorAllocated(id sector.ID) (bool, error) {
	if err := fs.cache.refresh(fs.disk); err != nil {
		return false, err
	}
	l := lsn(id.Head, id.Track, id.Sector, fs.cache.sectorsPerDiskTrack)
	return fs.cache.bitmap().IsAllocated(l), nil
}

// FileInfo is a file's descriptive metadata without its payload.
type FileInfo struct {
	Name string
	Type FileType
	Size int
}

// GetFileInfo returns a file's metadata, including the type its own
// content header declares.
func (fs *FileSystem) GetFileInfo(name string) (FileInfo, error) {
	f, err := fs.ReadFile(name)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Name: name, Type: f.Type, Size: len(f.Data)}, nil
}

// Check runs a fsck-style consistency pass: the primary and backup
// directory tracks must match byte for byte, no directory entry may
// belong to two chains, no LSN may be used by two extents, and every
// LSN a file uses must be marked allocated in the bitmap.
func (fs *FileSystem) Check() error {
	if err := fs.cache.refresh(fs.disk); err != nil {
		return err
	}
	backup, err := readBackup(fs.disk)
	if err != nil {
		return err
	}
	for i, sec := range backup {
		if string(sec) != string(fs.cache.sectors[i]) {
			return diskerr.FilesystemConsistencyf("primary and backup directory tracks differ at sector %d", i+1)
		}
	}

	usedLSN := map[int]bool{}
	for _, track := range []int{primaryDirectoryTrack, backupDirectoryTrack} {
		for s := 1; s <= sectorsPerHeadTrack; s++ {
			usedLSN[lsn(0, track, s, fs.cache.sectorsPerDiskTrack)] = true
		}
	}

	seenIndices := map[int]bool{}
	for i := 0; i < totalDirectoryEntries; i++ {
		e, err := fs.cache.entry(i)
		if err != nil {
			return err
		}
		if !e.IsMainEntry() || !e.IsValid() {
			continue
		}
		c, err := fs.walkChain(i)
		if err != nil {
			return err
		}
		for _, idx := range c.indices {
			if seenIndices[idx] {
				return diskerr.FilesystemConsistencyf("directory index %d used by two chains", idx)
			}
			seenIndices[idx] = true
		}
		for _, ext := range c.extents {
			for k := 0; k < ext.Length; k++ {
				l := ext.LSN + k
				if usedLSN[l] {
					return diskerr.FilesystemConsistencyf("LSN %d allocated to two files", l)
				}
				usedLSN[l] = true
			}
		}
	}

	bm := fs.cache.bitmap()
	for l := range usedLSN {
		if !bm.IsAllocated(l) {
			return diskerr.FilesystemConsistencyf("LSN %d is referenced but not marked allocated", l)
		}
	}
	return nil
}

// Initialize formats d as an empty DragonDos filesystem: every
// non-directory sector zeroed, 160 empty directory entries on both
// directory tracks, and an allocation bitmap with only the directory
// tracks marked in-use.
func Initialize(d disk.Disk) (*FileSystem, error) {
	if !d.IsWriteable() {
		return nil, diskerr.DiskNotWriteablef("disk is not writeable")
	}
	sectorsPerDiskTrack := sectorsPerHeadTrack * d.Heads()

	for _, id := range d.AllSectors() {
		if id.Track == primaryDirectoryTrack || id.Track == backupDirectoryTrack {
			continue
		}
		if err := d.WriteSector(id, make([]byte, d.SectorSize())); err != nil {
			return nil, err
		}
	}

	c := &directoryCache{sectorsPerDiskTrack: sectorsPerDiskTrack}
	for i := range c.sectors {
		c.sectors[i] = make([]byte, directorySectorSize)
	}
	for i := 0; i < totalDirectoryEntries; i++ {
		c.setEntry(i, emptyEntry())
	}
	bm := c.bitmap()
	for l := 0; l < d.Tracks()*sectorsPerDiskTrack; l++ {
		bm.SetAllocated(l, false)
	}
	for _, track := range []int{primaryDirectoryTrack, backupDirectoryTrack} {
		for s := 1; s <= sectorsPerHeadTrack; s++ {
			bm.SetAllocated(lsn(0, track, s, sectorsPerDiskTrack), true)
		}
	}
	bm.WriteGeometry(d.Tracks(), sectorsPerDiskTrack)

	if err := c.flush(d); err != nil {
		return nil, err
	}
	return Open(d, d.IsWriteable())
}
