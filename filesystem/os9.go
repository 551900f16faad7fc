package filesystem

import (
	"fmt"

	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/sector"
)

// os9Operator is an interface-only OS-9 operator: it does not read
// OS-9 directories or file descriptors. Listing, existence checks,
// reading, writing, deleting, renaming, free-space accounting, file
// info and allocation queries all return a "not implemented" error;
// Check returns nil without reading the disk, and IsValidFilename
// checks only that the name is 1-29 characters long. The one working
// operation is module-header inspection of caller-supplied bytes via
// GetModuleInfo (see ParseModule in os9_module.go).
//
// Extends the flat catalog Operator shape with the hierarchical
// directory operations OS-9's RBF layer adds.
type os9Operator struct {
	d disk.Disk
}

func (o *os9Operator) Name() string     { return "OS-9" }
func (o *os9Operator) HasSubdirs() bool { return true }

func (o *os9Operator) ListFiles(subdir string) ([]Descriptor, error) {
	return nil, fmt.Errorf("os9: directory listing not implemented")
}

func (o *os9Operator) FileExists(name string) (bool, error) {
	return false, fmt.Errorf("os9: file lookup not implemented")
}

func (o *os9Operator) ReadFile(name string) (File, error) {
	return File{}, fmt.Errorf("os9: read not implemented")
}

func (o *os9Operator) WriteFile(name string, f File, overwrite bool) (bool, error) {
	return false, fmt.Errorf("os9: write not implemented")
}

func (o *os9Operator) DeleteFile(name string) (bool, error) {
	return false, fmt.Errorf("os9: delete not implemented")
}

func (o *os9Operator) RenameFile(oldName, newName string) error {
	return fmt.Errorf("os9: rename not implemented")
}

func (o *os9Operator) IsValidFilename(name string) bool {
	return len(name) > 0 && len(name) <= 29
}

func (o *os9Operator) Free() (int, error) {
	return 0, fmt.Errorf("os9: free-space accounting not implemented")
}

func (o *os9Operator) Check() error {
	return nil
}

func (o *os9Operator) GetFileInfo(name string) (FileInfo, error) {
	return FileInfo{}, fmt.Errorf("os9: file info not implemented")
}

func (o *os9Operator) IsSectorAllocated(id sector.ID) (bool, error) {
	return false, fmt.Errorf("os9: allocation map not implemented")
}

// CreateDirectory and DeleteDirectory are the hierarchical extensions
// OS-9's RBF layer adds beyond the flat Operator contract; like the
// rest of this backend, they are interface-only stubs.
func (o *os9Operator) CreateDirectory(path string) error {
	return fmt.Errorf("os9: create directory not implemented")
}

func (o *os9Operator) DeleteDirectory(path string) error {
	return fmt.Errorf("os9: delete directory not implemented")
}

// GetModuleInfo parses raw as an OS-9 executable module header. The
// bytes come from the caller; this operator's ReadFile does not supply
// them.
func (o *os9Operator) GetModuleInfo(raw []byte) (*Module, error) {
	return ParseModule(raw)
}

// Os9Factory identifies an OS-9 filesystem by its characteristic
// double-sided 80-track geometry; like FlexFactory, this is a
// geometry-only heuristic since the RBF superblock layout is out of
// scope.
type Os9Factory struct{}

func (Os9Factory) Name() string { return "OS-9" }

func (Os9Factory) SeemsToMatch(d disk.Disk) bool {
	return d.Heads() == 2 && d.Tracks() == 80
}

func (Os9Factory) Operator(d disk.Disk, writeable bool) (Operator, error) {
	return &os9Operator{d: d}, nil
}
