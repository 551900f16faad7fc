package hfe

import (
	"bytes"
	"testing"

	"github.com/rolfmichelsen/dragontools/sector"
)

// TestCreateOpenGeometryRoundTrip checks that the header reported
// after reopening a freshly created image matches what was requested,
// and that every sector on both the first and last track exists.
func TestCreateOpenGeometryRoundTrip(t *testing.T) {
	created, err := Create(1, 40, 18, 256, 9)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reopened, err := Open(created.Bytes(), 18, 256, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.header.FormatRevision != 0 {
		t.Errorf("FormatRevision = %d, want 0", reopened.header.FormatRevision)
	}
	if reopened.Tracks() != 40 {
		t.Errorf("Tracks() = %d, want 40", reopened.Tracks())
	}
	if reopened.Heads() != 1 {
		t.Errorf("Heads() = %d, want 1", reopened.Heads())
	}
	if reopened.header.TrackEncoding != EncodingISOIBMMFM {
		t.Errorf("TrackEncoding = %#02x, want ISOIBM_MFM", reopened.header.TrackEncoding)
	}

	for _, track := range []int{0, 39} {
		for s := 1; s <= 18; s++ {
			id := sector.ID{Head: 0, Track: track, Sector: s}
			if !reopened.SectorExists(id) {
				t.Errorf("sector_exists(0, %d, %d) = false, want true", track, s)
			}
		}
	}
}

// TestWriteReadRoundTrip checks that a sector written to a freshly
// created image reads back with the same payload.
func TestWriteReadRoundTrip(t *testing.T) {
	d, err := Create(1, 2, 18, 256, 9)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := sector.ID{Head: 0, Track: 1, Sector: 9}
	payload := bytes.Repeat([]byte{0xAB}, 256)
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

// TestReadSectorOtherHeadKeepsOwnData checks that side 1's track data is
// kept distinct from side 0's - a sector visible on one head must not
// spuriously resolve against the other head's deinterleaved bytes.
func TestReadSectorOtherHeadKeepsOwnData(t *testing.T) {
	d, err := Create(2, 2, 18, 256, 9)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := bytes.Repeat([]byte{0x11}, 256)
	if err := d.WriteSector(sector.ID{Head: 0, Track: 0, Sector: 1}, payload); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	got, err := d.ReadSector(sector.ID{Head: 1, Track: 0, Sector: 1})
	if err != nil {
		t.Fatalf("ReadSector(head 1): %v", err)
	}
	if bytes.Equal(got, payload) {
		t.Error("side 1's sector 1 unexpectedly matched side 0's written payload")
	}
}

// TestInterleavedSectorOrder checks the default interleave-9 physical
// layout starting at sector 1.
func TestInterleavedSectorOrder(t *testing.T) {
	order := InterleavedSectorOrder(1, 18, 9)
	want := []int{1, 10, 2, 11, 3, 12, 4, 13, 5, 14, 6, 15, 7, 16, 8, 17, 9, 18}
	if len(order) != len(want) {
		t.Fatalf("order has %d entries, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

// TestUnsupportedEncodingRejected checks that Open refuses a header
// advertising an encoding other than ISOIBM_MFM.
func TestUnsupportedEncodingRejected(t *testing.T) {
	created, err := Create(1, 2, 18, 256, 9)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	data := created.Bytes()
	data[8+3] = EncodingAmigaMFM // TrackEncoding field
	if _, err := Open(data, 18, 256, true); err == nil {
		t.Fatal("expected Open to reject a non-ISOIBM_MFM encoding")
	}
}
