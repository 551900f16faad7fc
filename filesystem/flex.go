package filesystem

import (
	"fmt"

	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/sector"
)

// flexOperator is an interface-only FLEX operator, mirroring
// rsdosOperator: it does not read the FLEX catalog or allocation map,
// and its query and mutation operations return a "not implemented"
// error.
type flexOperator struct {
	d disk.Disk
}

func (o *flexOperator) Name() string     { return "FLEX" }
func (o *flexOperator) HasSubdirs() bool { return false }

func (o *flexOperator) ListFiles(subdir string) ([]Descriptor, error) {
	return nil, fmt.Errorf("flex: directory listing not implemented")
}

func (o *flexOperator) FileExists(name string) (bool, error) {
	return false, fmt.Errorf("flex: file lookup not implemented")
}

func (o *flexOperator) ReadFile(name string) (File, error) {
	return File{}, fmt.Errorf("flex: read not implemented")
}

func (o *flexOperator) WriteFile(name string, f File, overwrite bool) (bool, error) {
	return false, fmt.Errorf("flex: write not implemented")
}

func (o *flexOperator) DeleteFile(name string) (bool, error) {
	return false, fmt.Errorf("flex: delete not implemented")
}

func (o *flexOperator) RenameFile(oldName, newName string) error {
	return fmt.Errorf("flex: rename not implemented")
}

func (o *flexOperator) IsValidFilename(name string) bool {
	return len(name) > 0 && len(name) <= 12
}

func (o *flexOperator) Free() (int, error) {
	return 0, fmt.Errorf("flex: free-space accounting not implemented")
}

func (o *flexOperator) Check() error {
	return nil
}

func (o *flexOperator) GetFileInfo(name string) (FileInfo, error) {
	return FileInfo{}, fmt.Errorf("flex: file info not implemented")
}

func (o *flexOperator) IsSectorAllocated(id sector.ID) (bool, error) {
	return false, fmt.Errorf("flex: allocation map not implemented")
}

// FlexFactory identifies a FLEX filesystem by its characteristic
// double-sided 80-track geometry; FLEX's superblock has no reliable
// disk-wide magic byte to sniff, so SeemsToMatch is geometry-only and
// deliberately permissive.
type FlexFactory struct{}

func (FlexFactory) Name() string { return "FLEX" }

func (FlexFactory) SeemsToMatch(d disk.Disk) bool {
	return d.Heads() == 2 && d.Tracks() == 80
}

func (FlexFactory) Operator(d disk.Disk, writeable bool) (Operator, error) {
	return &flexOperator{d: d}, nil
}
