package dragondos

import (
	"strings"
	"testing"

	"github.com/kr/pretty"

	"github.com/rolfmichelsen/dragontools/disk"
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
	"github.com/rolfmichelsen/dragontools/sector"
)

func newFormatted(t *testing.T, heads, tracks int) (*disk.Memory, *FileSystem) {
	t.Helper()
	d := disk.NewMemory(heads, tracks, sectorsPerHeadTrack, directorySectorSize)
	fs, err := Initialize(d)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return d, fs
}

func TestLSNRoundTrip(t *testing.T) {
	for _, spdt := range []int{18, 36} {
		for l := 0; l < 200; l++ {
			head, track, sec := lsnInverse(l, spdt)
			got := lsn(head, track, sec, spdt)
			if got != l {
				t.Fatalf("lsn(lsnInverse(%d, %d)) = %d, want %d", l, spdt, got, l)
			}
		}
	}
}

// TestInitializeFreeSpace checks that a freshly formatted single-sided
// 40-track disk reports 175104 free bytes, and a double-sided 80-track
// disk reports 728064.
func TestInitializeFreeSpace(t *testing.T) {
	_, fs1 := newFormatted(t, 1, 40)
	free1, err := fs1.Free()
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	if free1 != 175104 {
		t.Errorf("1x40 free space = %d, want 175104", free1)
	}

	_, fs2 := newFormatted(t, 2, 80)
	free2, err := fs2.Free()
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	if free2 != 728064 {
		t.Errorf("2x80 free space = %d, want 728064", free2)
	}
}

func TestInitializeDirectoryTracksAllocated(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)
	for _, track := range []int{primaryDirectoryTrack, backupDirectoryTrack} {
		for s := 1; s <= sectorsPerHeadTrack; s++ {
			ok, err := fs.IsSectorAllocated(sector.ID{Head: 0, Track: track, Sector: s})
			if err != nil {
				t.Fatalf("IsSectorAllocated: %v", err)
			}
			if !ok {
				t.Errorf("directory track %d sector %d should be allocated", track, s)
			}
		}
	}
}

func TestInitializeEmptyDirectory(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)
	names, err := fs.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("fresh filesystem has %d files, want 0", len(names))
	}
	if err := fs.Check(); err != nil {
		t.Errorf("Check on fresh filesystem: %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)

	payload := make([]byte, 700)
	for i := range payload {
		payload[i] = byte(i)
	}
	f := &File{Type: FileTypeMachineCode, Data: payload, LoadAddress: 0x4000, StartAddress: 0x4010}
	if err := fs.WriteFile("PROG.BIN", f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	exists, err := fs.FileExists("prog.bin")
	if err != nil {
		t.Fatalf("FileExists: %v", err)
	}
	if !exists {
		t.Fatal("FileExists(\"prog.bin\") = false, want true (case-insensitive)")
	}

	got, err := fs.ReadFile("PROG.BIN")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Type != FileTypeMachineCode {
		t.Errorf("Type = %v, want FileTypeMachineCode", got.Type)
	}
	if got.LoadAddress != 0x4000 || got.StartAddress != 0x4010 {
		t.Errorf("LoadAddress/StartAddress = %#x/%#x, want 0x4000/0x4010", got.LoadAddress, got.StartAddress)
	}
	if len(got.Data) != len(payload) {
		t.Fatalf("len(Data) = %d, want %d", len(got.Data), len(payload))
	}
	for i := range payload {
		if got.Data[i] != payload[i] {
			t.Fatalf("Data[%d] = %#x, want %#x", i, got.Data[i], payload[i])
		}
	}

	if err := fs.Check(); err != nil {
		t.Errorf("Check after write: %v", err)
	}
}

func TestWriteFileRejectsDuplicate(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)
	f := &File{Type: FileTypeData, Data: []byte("hello")}
	if err := fs.WriteFile("DUP", f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	err := fs.WriteFile("DUP", f)
	if !diskerr.IsFileExists(err) {
		t.Errorf("WriteFile duplicate error = %v, want FileExists kind", err)
	}
}

func TestWriteFileRejectsInvalidName(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)
	f := &File{Type: FileTypeData, Data: []byte("x")}
	err := fs.WriteFile("", f)
	if !diskerr.IsInvalidFilename(err) {
		t.Errorf("WriteFile empty name error = %v, want InvalidFilename kind", err)
	}
}

// TestMultiExtentFile fragments free space into single-sector gaps so
// that a subsequent write is forced to span more than 4 extents,
// covering the main-to-extension directory chain link.
func TestMultiExtentFile(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)

	// Each filler file takes exactly one sector, landing on consecutive
	// LSNs 0..8 on a freshly formatted disk.
	for i := 0; i < 9; i++ {
		f := &File{Type: FileTypeData, Data: []byte{byte(i)}}
		if err := fs.WriteFile(filenameFor(i), f); err != nil {
			t.Fatalf("WriteFile(%s): %v", filenameFor(i), err)
		}
	}
	// Delete every other filler to leave single-sector gaps at LSNs
	// 1, 3, 5, 7.
	for i := 1; i < 9; i += 2 {
		if err := fs.DeleteFile(filenameFor(i)); err != nil {
			t.Fatalf("DeleteFile(%s): %v", filenameFor(i), err)
		}
	}

	// Needs 5 sectors: the four single-sector gaps plus one sector
	// from the contiguous free run starting at LSN 9, forcing 5
	// extents and so a main entry plus one extension entry.
	payload := make([]byte, 5*directorySectorSize)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	f := &File{Type: FileTypeData, Data: payload}
	if err := fs.WriteFile("BIG", f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	info, err := fs.GetFileInfo("BIG")
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if info.Size != len(payload) {
		t.Fatalf("GetFileInfo size = %d, want %d", info.Size, len(payload))
	}

	got, err := fs.ReadFile("BIG")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := pretty.Diff(got.Data, payload); len(diff) > 0 {
		t.Fatalf("Data differs from written payload: %s", strings.Join(diff, "; "))
	}
	if err := fs.Check(); err != nil {
		t.Errorf("Check after multi-extent write: %v", err)
	}
}

func filenameFor(i int) string { return string(rune('A'+i)) + "FILL" }

// TestLargeFileSpansMultipleExtentsPerRun writes a file whose sector
// count exceeds maxExtentLength on a disk with a single large
// contiguous free run, forcing allocateExtents to split that run into
// more than one extent rather than overflowing the one-byte length
// field.
func TestLargeFileSpansMultipleExtentsPerRun(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)

	const numSectors = 684 // > maxExtentLength (255), fits in a 1x40 disk
	payload := make([]byte, numSectors*directorySectorSize)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	f := &File{Type: FileTypeData, Data: payload}
	if err := fs.WriteFile("BIG", f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := fs.ReadFile("BIG")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := pretty.Diff(got.Data, payload); len(diff) > 0 {
		t.Fatalf("Data differs from written payload: %s", strings.Join(diff, "; "))
	}
	if err := fs.Check(); err != nil {
		t.Errorf("Check after large write: %v", err)
	}
}

// TestDeleteFreesSpace checks that deleting a file returns its extents
// to the free pool and Check still passes.
func TestDeleteFreesSpace(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)
	before, err := fs.Free()
	if err != nil {
		t.Fatalf("Free: %v", err)
	}

	f := &File{Type: FileTypeData, Data: make([]byte, 1024)}
	if err := fs.WriteFile("TEMP", f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mid, err := fs.Free()
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	if mid >= before {
		t.Errorf("Free space did not shrink after write: before=%d mid=%d", before, mid)
	}

	if err := fs.DeleteFile("TEMP"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	after, err := fs.Free()
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	if after != before {
		t.Errorf("Free space after delete = %d, want %d (back to original)", after, before)
	}

	exists, err := fs.FileExists("TEMP")
	if err != nil {
		t.Fatalf("FileExists: %v", err)
	}
	if exists {
		t.Error("FileExists(\"TEMP\") = true after delete, want false")
	}

	if err := fs.Check(); err != nil {
		t.Errorf("Check after delete: %v", err)
	}
}

func TestRenameFile(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)
	f := &File{Type: FileTypeData, Data: []byte("payload")}
	if err := fs.WriteFile("OLDNAME", f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := fs.RenameFile("OLDNAME", "NEWNAME"); err != nil {
		t.Fatalf("RenameFile: %v", err)
	}

	if exists, _ := fs.FileExists("OLDNAME"); exists {
		t.Error("old name still exists after rename")
	}
	got, err := fs.ReadFile("NEWNAME")
	if err != nil {
		t.Fatalf("ReadFile(new name): %v", err)
	}
	if string(got.Data) != "payload" {
		t.Errorf("Data after rename = %q, want %q", got.Data, "payload")
	}
	if err := fs.Check(); err != nil {
		t.Errorf("Check after rename: %v", err)
	}
}

// TestRenameFileRejectsExistingTarget checks that renaming onto a name
// that already exists fails with FileExists and leaves both files
// untouched.
func TestRenameFileRejectsExistingTarget(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)
	a := &File{Type: FileTypeData, Data: []byte("a-payload")}
	b := &File{Type: FileTypeData, Data: []byte("b-payload")}
	if err := fs.WriteFile("DRYBONES.BIN", a); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := fs.WriteFile("DANCER.BIN", b); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := fs.RenameFile("DRYBONES.BIN", "DANCER.BIN")
	if !diskerr.IsFileExists(err) {
		t.Errorf("RenameFile onto existing name error = %v, want FileExists kind", err)
	}

	got, err := fs.ReadFile("DRYBONES.BIN")
	if err != nil {
		t.Fatalf("ReadFile(DRYBONES.BIN) after failed rename: %v", err)
	}
	if string(got.Data) != "a-payload" {
		t.Errorf("DRYBONES.BIN payload = %q, want unchanged %q", got.Data, "a-payload")
	}
	got, err = fs.ReadFile("DANCER.BIN")
	if err != nil {
		t.Fatalf("ReadFile(DANCER.BIN) after failed rename: %v", err)
	}
	if string(got.Data) != "b-payload" {
		t.Errorf("DANCER.BIN payload = %q, want unchanged %q", got.Data, "b-payload")
	}
	if err := fs.Check(); err != nil {
		t.Errorf("Check after failed rename: %v", err)
	}
}

func TestWriteFileFailsWhenDiskFull(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)
	free, err := fs.Free()
	if err != nil {
		t.Fatalf("Free: %v", err)
	}
	f := &File{Type: FileTypeData, Data: make([]byte, free+directorySectorSize)}
	err = fs.WriteFile("TOOBIG", f)
	if !diskerr.IsFilesystemFull(err) {
		t.Errorf("WriteFile oversized error = %v, want FilesystemFull kind", err)
	}
}

func TestReadFileNotFound(t *testing.T) {
	_, fs := newFormatted(t, 1, 40)
	_, err := fs.ReadFile("NOSUCH")
	if !diskerr.IsFileNotFound(err) {
		t.Errorf("ReadFile missing error = %v, want FileNotFound kind", err)
	}
}

func TestOpenRejectsBadGeometry(t *testing.T) {
	// 35 tracks at the right sector layout: passes the directory-track
	// read but fails the supported-track-count check.
	d := disk.NewMemory(1, 35, sectorsPerHeadTrack, directorySectorSize)
	_, err := Open(d, true)
	if !diskerr.IsGeometry(err) {
		t.Errorf("Open on bad geometry error = %v, want Geometry kind", err)
	}
}

func TestCheckDetectsPrimaryBackupMismatch(t *testing.T) {
	d, fs := newFormatted(t, 1, 40)
	if err := fs.Check(); err != nil {
		t.Fatalf("Check on fresh filesystem: %v", err)
	}
	if err := d.WriteSector(sector.ID{Head: 0, Track: backupDirectoryTrack, Sector: 3}, make([]byte, directorySectorSize)); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	if err := fs.Check(); !diskerr.IsFilesystemConsistency(err) {
		t.Errorf("Check after corrupting backup = %v, want FilesystemConsistency kind", err)
	}
}

func TestIsValidFilename(t *testing.T) {
	fs := &FileSystem{}
	cases := map[string]bool{
		"TUNES":      true,
		"TUNES.BAS":  true,
		"A":          false,
		"AB":         true,
		"12345678":   true,
		"123456789":  false,
		"":           false,
		"TUNES.BASX": false,
	}
	for name, want := range cases {
		if got := fs.IsValidFilename(name); got != want {
			t.Errorf("IsValidFilename(%q) = %v, want %v", name, got, want)
		}
	}
}
