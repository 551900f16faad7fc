// Package image dispatches a raw disk image to the right backend by
// filename suffix, and a filesystem identifier to the right Operator
// factory.
//
// Disk dispatch is by extension alone, one backend per suffix with no
// fallback to another backend, the same shape as Apple II DO/PO/HDV
// dispatch generalized to a VDK/JVC/HFE/DMK quartet. Filesystem
// detection tries each factory in order and keeps the first whose
// SeemsToMatch accepts the disk.
// A small explicit switch on the suffix stands in for path.Ext's full
// generality, which this fixed four-suffix set doesn't need.
package image

import (
	"path/filepath"
	"strings"

	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/dmk"
	"github.com/rolfmichelsen/dragontools/filesystem"
	"github.com/rolfmichelsen/dragontools/hfe"
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

// defaultSectorsPerTrack and defaultSectorSize are HFE's and DMK's
// assumed geometry when the image's own header doesn't carry it;
// DragonDos's two supported geometries both use 256-byte sectors, and
// 18 sectors/track is the single-sided default.
const (
	defaultSectorsPerTrack = 18
	defaultSectorSize      = 256
)

// OpenDisk opens a raw disk image's bytes as a disk.Disk, picking the
// backend from filename's suffix.
func OpenDisk(filename string, data []byte, writeable bool) (disk.Disk, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".vdk":
		return disk.OpenVdk(data, writeable)
	case ".dsk":
		return disk.OpenJvc(data, writeable)
	case ".hfe":
		return hfe.Open(data, defaultSectorsPerTrack, defaultSectorSize, writeable)
	case ".dmk":
		return dmk.Open(data, defaultSectorSize, writeable)
	default:
		return nil, diskerr.ImageFormatf("unrecognized disk image extension %q", filepath.Ext(filename))
	}
}

// FilesystemKind names one of the four filesystem backends a disk's
// contents can be read with.
type FilesystemKind string

const (
	DragonDos FilesystemKind = "dragondos"
	RsDos     FilesystemKind = "rsdos"
	OS9       FilesystemKind = "os9"
	Flex      FilesystemKind = "flex"
)

func factoryFor(kind FilesystemKind) (filesystem.OperatorFactory, error) {
	switch kind {
	case DragonDos:
		return filesystem.DragonDosFactory{}, nil
	case RsDos:
		return filesystem.RsDosFactory{}, nil
	case OS9:
		return filesystem.Os9Factory{}, nil
	case Flex:
		return filesystem.FlexFactory{}, nil
	default:
		return nil, diskerr.ImageFormatf("unknown filesystem kind %q", kind)
	}
}

// OpenFilesystem opens d with the named filesystem backend.
func OpenFilesystem(kind FilesystemKind, d disk.Disk, writeable bool) (filesystem.Operator, error) {
	factory, err := factoryFor(kind)
	if err != nil {
		return nil, err
	}
	return factory.Operator(d, writeable)
}

// DetectFilesystem tries each backend's SeemsToMatch in a fixed order
// (DragonDos first, since it has a real geometry+checksum sniff; the
// geometry-only backends after) and returns the first that claims d.
func DetectFilesystem(d disk.Disk) (FilesystemKind, filesystem.Operator, error) {
	order := []struct {
		kind    FilesystemKind
		factory filesystem.OperatorFactory
	}{
		{DragonDos, filesystem.DragonDosFactory{}},
		{RsDos, filesystem.RsDosFactory{}},
		{OS9, filesystem.Os9Factory{}},
		{Flex, filesystem.FlexFactory{}},
	}
	for _, candidate := range order {
		if candidate.factory.SeemsToMatch(d) {
			op, err := candidate.factory.Operator(d, false)
			if err == nil {
				return candidate.kind, op, nil
			}
		}
	}
	return "", nil, diskerr.ImageFormatf("no filesystem backend recognized this disk")
}
