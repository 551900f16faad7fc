package dmk

import (
	"bytes"
	"testing"

	"github.com/rolfmichelsen/dragontools/sector"
)

// TestCreateOpenGeometryRoundTrip checks that reopening a freshly
// created image reports the same geometry and every sector exists.
func TestCreateOpenGeometryRoundTrip(t *testing.T) {
	created, err := Create(1, 40, 18, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	reopened, err := Open(created.Bytes(), 256, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Heads() != 1 || reopened.Tracks() != 40 || reopened.SectorSize() != 256 {
		t.Errorf("reopened geometry = (%d,%d,%d), want (1,40,256)", reopened.Heads(), reopened.Tracks(), reopened.SectorSize())
	}
	for s := 1; s <= 18; s++ {
		if !reopened.SectorExists(sector.ID{Head: 0, Track: 0, Sector: s}) {
			t.Errorf("sector_exists(0,0,%d) = false, want true", s)
		}
	}
}

// TestWriteReadRoundTrip checks a written sector reads back unchanged.
func TestWriteReadRoundTrip(t *testing.T) {
	d, err := Create(2, 40, 18, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := sector.ID{Head: 1, Track: 20, Sector: 7}
	payload := bytes.Repeat([]byte{0x5A}, 256)
	if err := d.WriteSector(id, payload); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	got, err := d.ReadSector(id)
	if err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("ReadSector = % 02X, want % 02X", got, payload)
	}
}

// TestSectorNotFound checks an out-of-range sector number fails
// cleanly.
func TestSectorNotFound(t *testing.T) {
	d, err := Create(1, 10, 18, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := d.ReadSector(sector.ID{Head: 0, Track: 0, Sector: 99}); err == nil {
		t.Fatal("expected an error reading sector 99 of an 18-sector track")
	}
}

// TestReadOnlyRejectsWrite checks WriteSector fails on a read-only
// handle.
func TestReadOnlyRejectsWrite(t *testing.T) {
	created, err := Create(1, 5, 18, 256)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ro, err := Open(created.Bytes(), 256, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ro.WriteSector(sector.ID{Head: 0, Track: 0, Sector: 1}, make([]byte, 256)); err == nil {
		t.Fatal("expected a write to a read-only DMK disk to fail")
	}
}
