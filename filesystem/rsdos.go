package filesystem

import (
	"fmt"

	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/sector"
)

// rsdosOperator is an interface-only RS-DOS operator: it does not read
// the RS-DOS catalog or granule map. Listing, existence checks,
// reading, writing, deleting, renaming, free-space accounting, file
// info and allocation queries all return a "not implemented" error;
// Check returns nil without reading the disk, and IsValidFilename
// checks only that the name is 1-12 characters long.
//
// Generalizes a track/sector-list chain scan to RS-DOS's granule-based
// allocation without reproducing its exact on-disk layout.
type rsdosOperator struct {
	d disk.Disk
}

func (o *rsdosOperator) Name() string     { return "RS-DOS" }
func (o *rsdosOperator) HasSubdirs() bool { return false }

func (o *rsdosOperator) ListFiles(subdir string) ([]Descriptor, error) {
	return nil, fmt.Errorf("rsdos: directory listing not implemented")
}

func (o *rsdosOperator) FileExists(name string) (bool, error) {
	return false, fmt.Errorf("rsdos: file lookup not implemented")
}

func (o *rsdosOperator) ReadFile(name string) (File, error) {
	return File{}, fmt.Errorf("rsdos: read not implemented")
}

func (o *rsdosOperator) WriteFile(name string, f File, overwrite bool) (bool, error) {
	return false, fmt.Errorf("rsdos: write not implemented")
}

func (o *rsdosOperator) DeleteFile(name string) (bool, error) {
	return false, fmt.Errorf("rsdos: delete not implemented")
}

func (o *rsdosOperator) RenameFile(oldName, newName string) error {
	return fmt.Errorf("rsdos: rename not implemented")
}

func (o *rsdosOperator) IsValidFilename(name string) bool {
	return len(name) > 0 && len(name) <= 12
}

func (o *rsdosOperator) Free() (int, error) {
	return 0, fmt.Errorf("rsdos: free-space accounting not implemented")
}

func (o *rsdosOperator) Check() error {
	return nil
}

func (o *rsdosOperator) GetFileInfo(name string) (FileInfo, error) {
	return FileInfo{}, fmt.Errorf("rsdos: file info not implemented")
}

func (o *rsdosOperator) IsSectorAllocated(id sector.ID) (bool, error) {
	return false, fmt.Errorf("rsdos: allocation map not implemented")
}

// RsDosFactory identifies an RS-DOS (Color Computer Disk BASIC)
// filesystem by its single-sided 35-track, 18-sector-per-track
// geometry.
type RsDosFactory struct{}

func (RsDosFactory) Name() string { return "RS-DOS" }

func (RsDosFactory) SeemsToMatch(d disk.Disk) bool {
	return d.Heads() == 1 && d.Tracks() == 35 && d.SectorsPerTrack() == 18
}

func (RsDosFactory) Operator(d disk.Disk, writeable bool) (Operator, error) {
	return &rsdosOperator{d: d}, nil
}
