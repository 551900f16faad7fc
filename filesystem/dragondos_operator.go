package filesystem

import (
	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/dragondos"
	"github.com/rolfmichelsen/dragontools/sector"
)

// dragonFileTypeName and dragonFileType convert between dragondos's
// own FileType enum and the generic string type name Descriptor and
// FileInfo carry.
func dragonFileTypeName(t dragondos.FileType) string {
	switch t {
	case dragondos.FileTypeBasic:
		return "BASIC"
	case dragondos.FileTypeMachineCode:
		return "MACHINE CODE"
	default:
		return "DATA"
	}
}

func dragonFileType(name string) dragondos.FileType {
	switch name {
	case "BASIC":
		return dragondos.FileTypeBasic
	case "MACHINE CODE":
		return dragondos.FileTypeMachineCode
	default:
		return dragondos.FileTypeData
	}
}

// dragonOperator adapts *dragondos.FileSystem to the generic Operator
// interface, wrapping the one concrete filesystem type it has.
type dragonOperator struct {
	fs *dragondos.FileSystem
}

func (o *dragonOperator) Name() string     { return "DragonDos" }
func (o *dragonOperator) HasSubdirs() bool { return false }

func (o *dragonOperator) ListFiles(subdir string) ([]Descriptor, error) {
	names, err := o.fs.ListFiles()
	if err != nil {
		return nil, err
	}
	descs := make([]Descriptor, 0, len(names))
	for _, name := range names {
		info, err := o.fs.GetFileInfo(name)
		if err != nil {
			return nil, err
		}
		descs = append(descs, Descriptor{
			Name:     name,
			Fullname: name,
			Length:   info.Size,
			Type:     dragonFileTypeName(info.Type),
		})
	}
	return descs, nil
}

func (o *dragonOperator) FileExists(name string) (bool, error) {
	return o.fs.FileExists(name)
}

func (o *dragonOperator) ReadFile(name string) (File, error) {
	f, err := o.fs.ReadFile(name)
	if err != nil {
		return File{}, err
	}
	return File{
		Type:         dragonFileTypeName(f.Type),
		Data:         f.Data,
		LoadAddress:  f.LoadAddress,
		StartAddress: f.StartAddress,
	}, nil
}

func (o *dragonOperator) WriteFile(name string, f File, overwrite bool) (bool, error) {
	if overwrite {
		if exists, err := o.fs.FileExists(name); err != nil {
			return false, err
		} else if exists {
			if err := o.fs.DeleteFile(name); err != nil {
				return false, err
			}
		}
	}
	err := o.fs.WriteFile(name, &dragondos.File{
		Type:         dragonFileType(f.Type),
		Data:         f.Data,
		LoadAddress:  f.LoadAddress,
		StartAddress: f.StartAddress,
	})
	return err == nil, err
}

func (o *dragonOperator) DeleteFile(name string) (bool, error) {
	err := o.fs.DeleteFile(name)
	return err == nil, err
}

func (o *dragonOperator) RenameFile(oldName, newName string) error {
	return o.fs.RenameFile(oldName, newName)
}

func (o *dragonOperator) IsValidFilename(name string) bool {
	return o.fs.IsValidFilename(name)
}

func (o *dragonOperator) Free() (int, error) {
	return o.fs.Free()
}

func (o *dragonOperator) Check() error {
	return o.fs.Check()
}

func (o *dragonOperator) GetFileInfo(name string) (FileInfo, error) {
	info, err := o.fs.GetFileInfo(name)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Name: info.Name, Type: dragonFileTypeName(info.Type), Size: info.Size}, nil
}

func (o *dragonOperator) IsSectorAllocated(id sector.ID) (bool, error) {
	return o.fs.IsSectorAllocated(id)
}

// DragonDosFactory identifies and opens a DragonDos filesystem.
type DragonDosFactory struct{}

func (DragonDosFactory) Name() string { return "DragonDos" }

// SeemsToMatch reports whether dragondos.Open accepts d: 1 or 2 heads
// of 40 or 80 tracks of 18 256-byte sectors, with geometry bytes in
// the directory track that agree with the disk.
func (DragonDosFactory) SeemsToMatch(d disk.Disk) bool {
	_, err := dragondos.Open(d, false)
	return err == nil
}

func (DragonDosFactory) Operator(d disk.Disk, writeable bool) (Operator, error) {
	fs, err := dragondos.Open(d, writeable)
	if err != nil {
		return nil, err
	}
	return &dragonOperator{fs: fs}, nil
}
