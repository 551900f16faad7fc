package disk

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/rolfmichelsen/dragontools/internal/diskerr"
	"github.com/rolfmichelsen/dragontools/sector"
)

// backends enumerates the flat backends under the common geometry
// used by the round-trip tests below.
func backends(t *testing.T) []Disk {
	t.Helper()
	jvc, err := CreateJvc(1, 2, 18, 256)
	if err != nil {
		t.Fatalf("CreateJvc: %v", err)
	}
	vdk, err := CreateVdk(1, 2, 18, 256)
	if err != nil {
		t.Fatalf("CreateVdk: %v", err)
	}
	mem := NewMemory(1, 2, 18, 256)
	return []Disk{jvc, vdk, mem}
}

// TestCreateOpenGeometryRoundTrip checks that opening the bytes
// produced by Create yields back the same geometry.
func TestCreateOpenGeometryRoundTrip(t *testing.T) {
	jvc, err := CreateJvc(1, 2, 18, 256)
	if err != nil {
		t.Fatalf("CreateJvc: %v", err)
	}
	reopened, err := OpenJvc(jvc.Bytes(), true)
	if err != nil {
		t.Fatalf("OpenJvc: %v", err)
	}
	if reopened.Heads() != 1 || reopened.Tracks() != 2 || reopened.SectorsPerTrack() != 18 || reopened.SectorSize() != 256 {
		t.Errorf("reopened geometry = (%d,%d,%d,%d), want (1,2,18,256)",
			reopened.Heads(), reopened.Tracks(), reopened.SectorsPerTrack(), reopened.SectorSize())
	}

	vdk, err := CreateVdk(1, 2, 18, 256)
	if err != nil {
		t.Fatalf("CreateVdk: %v", err)
	}
	reopenedVdk, err := OpenVdk(vdk.Bytes(), true)
	if err != nil {
		t.Fatalf("OpenVdk: %v", err)
	}
	if reopenedVdk.Heads() != 1 || reopenedVdk.Tracks() != 2 || reopenedVdk.SectorsPerTrack() != 18 || reopenedVdk.SectorSize() != 256 {
		t.Errorf("reopened VDK geometry = (%d,%d,%d,%d), want (1,2,18,256)",
			reopenedVdk.Heads(), reopenedVdk.Tracks(), reopenedVdk.SectorsPerTrack(), reopenedVdk.SectorSize())
	}
}

// TestWriteReadRoundTrip checks that a full-size sector written to each
// flat backend reads back unchanged; TestWriteTruncatesOrPads covers
// short and long writes.
func TestWriteReadRoundTrip(t *testing.T) {
	for _, d := range backends(t) {
		id := sector.ID{Head: 0, Track: 1, Sector: 5}
		payload := make([]byte, d.SectorSize())
		if _, err := rand.Read(payload); err != nil {
			t.Fatalf("rand.Read: %v", err)
		}
		if err := d.WriteSector(id, payload); err != nil {
			t.Fatalf("WriteSector: %v", err)
		}
		got, err := d.ReadSector(id)
		if err != nil {
			t.Fatalf("ReadSector: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("ReadSector returned % 02X, want % 02X", got, payload)
		}
	}
}

// TestWriteTruncatesOrPads checks a short write is zero-padded and a
// long write is truncated, both to the declared sector size.
func TestWriteTruncatesOrPads(t *testing.T) {
	d := NewMemory(1, 1, 18, 256)
	id := sector.ID{Head: 0, Track: 0, Sector: 1}

	if err := d.WriteSector(id, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteSector short: %v", err)
	}
	got, err := d.ReadSector(id)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	want := make([]byte, 256)
	want[0], want[1], want[2] = 1, 2, 3
	if !bytes.Equal(got, want) {
		t.Errorf("short write read back = % 02X, want zero-padded % 02X", got, want)
	}

	long := bytes.Repeat([]byte{0xFF}, 300)
	if err := d.WriteSector(id, long); err != nil {
		t.Fatalf("WriteSector long: %v", err)
	}
	got, err = d.ReadSector(id)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(got, long[:256]) {
		t.Errorf("long write read back truncated incorrectly")
	}
}

// TestSectorNotFound checks an out-of-range coordinate fails with
// SectorNotFound rather than panicking or silently clamping.
func TestSectorNotFound(t *testing.T) {
	d := NewMemory(1, 2, 18, 256)
	_, err := d.ReadSector(sector.ID{Head: 0, Track: 5, Sector: 1})
	if !diskerr.IsSectorNotFound(err) {
		t.Fatalf("reading an out-of-range track: got %v, want a SectorNotFound error", err)
	}
}

// TestWriteObserverFiresAfterWrite checks the sector-written
// notification fires, and that it sees the new data already in place
// (the DragonDos filesystem's cache invalidation depends on this
// ordering).
func TestWriteObserverFiresAfterWrite(t *testing.T) {
	d := NewMemory(1, 1, 18, 256)
	id := sector.ID{Head: 0, Track: 0, Sector: 1}

	var sawID sector.ID
	var sawData []byte
	fired := false
	d.OnSectorWritten(func(got sector.ID) {
		fired = true
		sawID = got
		sawData, _ = d.ReadSector(got)
	})

	payload := bytes.Repeat([]byte{0x42}, 256)
	if err := d.WriteSector(id, payload); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	if !fired {
		t.Fatal("sector-written observer did not fire")
	}
	if sawID != id {
		t.Errorf("observer saw id %v, want %v", sawID, id)
	}
	if !bytes.Equal(sawData, payload) {
		t.Error("observer read stale data: write must complete before notification fires")
	}
}

// TestReadOnlyDiskRejectsWrites checks WriteSector fails with
// DiskNotWriteable on a read-only handle.
func TestReadOnlyDiskRejectsWrites(t *testing.T) {
	jvc, err := CreateJvc(1, 1, 18, 256)
	if err != nil {
		t.Fatalf("CreateJvc: %v", err)
	}
	ro, err := OpenJvc(jvc.Bytes(), false)
	if err != nil {
		t.Fatalf("OpenJvc: %v", err)
	}
	if err := ro.WriteSector(sector.ID{Head: 0, Track: 0, Sector: 1}, make([]byte, 256)); !diskerr.IsDiskNotWriteable(err) {
		t.Fatalf("write to a read-only disk: got %v, want a DiskNotWriteable error", err)
	}
}

// TestAllSectorsCount checks the iterator yields every sector exactly
// once.
func TestAllSectorsCount(t *testing.T) {
	d := NewMemory(2, 3, 18, 256)
	ids := d.AllSectors()
	if len(ids) != 2*3*18 {
		t.Fatalf("AllSectors returned %d ids, want %d", len(ids), 2*3*18)
	}
	seen := make(map[sector.ID]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %v in AllSectors", id)
		}
		seen[id] = true
	}
}
