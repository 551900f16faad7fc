package hfe

import (
	"io"

	"github.com/rolfmichelsen/dragontools/internal/crc16"
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
	"github.com/rolfmichelsen/dragontools/mfm"
	"github.com/rolfmichelsen/dragontools/sector"
)

const (
	idAddressMark   = 0xFE
	dataAddressMark = 0xFB
	syncRunLength   = 3

	gapByte       = 0x4E
	preambleBytes = 8
	postambleBytes = 108

	idTrailerGapBytes   = 24
	idTrailerZeroBytes  = 12
	dataTrailerGapBytes = 22
	dataTrailerZeroBytes = 12

	defaultInterleave = 9
)

// Track is a WD279X track layered over an HFE track's deinterleaved
// raw bytes through the MFM codec: RawTrack -> mfm.Stream -> Track.
//
// The ID/data-address-mark scan follows the sergev-fdx mfm-reader.go
// approach (scanIBMPC/ReadSectorIBMPC), restructured into an explicit
// four-step algorithm: find sync, read and match ID record, find sync
// again, read data record.
type Track struct {
	raw *RawTrack
	mfm *mfm.Stream
}

// NewTrack wraps a raw per-side track buffer with the MFM codec.
func NewTrack(raw *RawTrack) *Track {
	return &Track{raw: raw, mfm: mfm.New(raw)}
}

// findSync positions the stream just past the next run of at least
// syncRunLength consecutive sync bytes.
func (t *Track) findSync() error {
	consecutive := 0
	for consecutive < syncRunLength {
		_, sync, err := t.mfm.ReadByte()
		if err != nil {
			return err
		}
		if sync {
			consecutive++
		} else {
			consecutive = 0
		}
	}
	return nil
}

// readBytes reads n decoded bytes from the MFM stream.
func (t *Track) readBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		b, _, err := t.mfm.ReadByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// findSectorID scans the track from its current position for an ID
// record matching want, leaving the stream positioned right after
// that ID record's CRC bytes.
func (t *Track) findSectorID(want sector.ID) error {
	for {
		if err := t.findSync(); err != nil {
			return err
		}
		mark, _, err := t.mfm.ReadByte()
		if err != nil {
			return err
		}
		if mark != idAddressMark {
			continue
		}
		idrec, err := t.readBytes(6)
		if err != nil {
			return err
		}
		if int(idrec[0]) == want.Track && int(idrec[1]) == want.Head && int(idrec[2]) == want.Sector {
			return nil
		}
	}
}

// ReadSector scans for want's ID address mark, then the following
// data address mark, and returns the payload and stored CRC.
func (t *Track) ReadSector(want sector.ID, size int) (*sector.Sector, error) {
	if _, err := t.raw.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if err := t.findSectorID(want); err != nil {
		return nil, diskerr.SectorNotFoundf("sector %s not found on track", want)
	}
	if err := t.findSync(); err != nil {
		return nil, diskerr.SectorNotFoundf("no data record following sector %s's ID record", want)
	}
	mark, _, err := t.mfm.ReadByte()
	if err != nil {
		return nil, err
	}
	if mark != dataAddressMark {
		return nil, diskerr.ImageFormatf("expected data address mark 0xFB for sector %s, got %#02x", want, mark)
	}
	payload, err := t.readBytes(size)
	if err != nil {
		return nil, err
	}
	crcBytes, err := t.readBytes(2)
	if err != nil {
		return nil, err
	}
	return &sector.Sector{
		ID:    want,
		Size:  size,
		Bytes: payload,
		CRC:   uint16(crcBytes[0])<<8 | uint16(crcBytes[1]),
	}, nil
}

// WriteSector finds the sector's ID record and data-address-mark as
// ReadSector does, then overwrites the payload in place (truncated or
// zero-padded to size) and recomputes its CRC.
func (t *Track) WriteSector(want sector.ID, data []byte, size int) error {
	if _, err := t.raw.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := t.findSectorID(want); err != nil {
		return diskerr.SectorNotFoundf("sector %s not found on track", want)
	}
	if err := t.findSync(); err != nil {
		return diskerr.SectorNotFoundf("no data record following sector %s's ID record", want)
	}
	mark, _, err := t.mfm.ReadByte()
	if err != nil {
		return err
	}
	if mark != dataAddressMark {
		return diskerr.ImageFormatf("expected data address mark 0xFB for sector %s, got %#02x", want, mark)
	}

	payload := sector.TruncateOrPad(data, size)
	if err := t.mfm.WriteAll(payload); err != nil {
		return err
	}
	crc := dataCRC(payload)
	return t.mfm.WriteAll([]byte{byte(crc >> 8), byte(crc)})
}

// idCRC computes the CRC-16 of a sector ID record, seeded over the
// three A1 sync bytes and the ID address mark as the WD279X
// controller does.
func idCRC(track, head, sectorNum, sizeCode byte) uint16 {
	c := crc16.New()
	c.AddBytes([]byte{0xA1, 0xA1, 0xA1, idAddressMark, track, head, sectorNum, sizeCode})
	return c.Sum()
}

// dataCRC computes the CRC-16 of a sector's data record, seeded over
// the three A1 sync bytes and the data address mark.
func dataCRC(payload []byte) uint16 {
	c := crc16.New()
	c.AddBytes([]byte{0xA1, 0xA1, 0xA1, dataAddressMark})
	c.AddBytes(payload)
	return c.Sum()
}

// Initialize writes a freshly formatted track: preamble, one ID+data
// record per sector in the given order, and a postamble. ids should
// already reflect the desired physical (possibly interleaved) layout.
func (t *Track) Initialize(ids []sector.ID, sizeCode, sectorSize int) error {
	if _, err := t.raw.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := t.mfm.WriteAll(repeat(gapByte, preambleBytes)); err != nil {
		return err
	}
	for _, id := range ids {
		if err := t.mfm.WriteAll(repeat(gapByte, idTrailerGapBytes)); err != nil {
			return err
		}
		if err := t.mfm.WriteAll(repeat(0x00, idTrailerZeroBytes)); err != nil {
			return err
		}
		if err := t.writeSync(); err != nil {
			return err
		}
		track, head, secNum := byte(id.Track), byte(id.Head), byte(id.Sector)
		idrec := []byte{idAddressMark, track, head, secNum, byte(sizeCode)}
		if err := t.mfm.WriteAll(idrec); err != nil {
			return err
		}
		crc := idCRC(track, head, secNum, byte(sizeCode))
		if err := t.mfm.WriteAll([]byte{byte(crc >> 8), byte(crc)}); err != nil {
			return err
		}

		if err := t.mfm.WriteAll(repeat(gapByte, dataTrailerGapBytes)); err != nil {
			return err
		}
		if err := t.mfm.WriteAll(repeat(0x00, dataTrailerZeroBytes)); err != nil {
			return err
		}
		if err := t.writeSync(); err != nil {
			return err
		}
		payload := make([]byte, sectorSize)
		if err := t.mfm.WriteAll(append([]byte{dataAddressMark}, payload...)); err != nil {
			return err
		}
		dcrc := dataCRC(payload)
		if err := t.mfm.WriteAll([]byte{byte(dcrc >> 8), byte(dcrc)}); err != nil {
			return err
		}
	}
	return t.mfm.WriteAll(repeat(gapByte, postambleBytes))
}

func (t *Track) writeSync() error {
	for i := 0; i < syncRunLength; i++ {
		if err := t.mfm.WriteSync(); err != nil {
			return err
		}
	}
	return nil
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// InterleavedSectorOrder returns the physical write order of logical
// sector numbers first..first+count-1 under the given interleave
// factor, as used by Initialize at track-creation time.
func InterleavedSectorOrder(first, count, interleave int) []int {
	if interleave <= 0 {
		interleave = defaultInterleave
	}
	order := make([]int, 0, count)
	seen := make(map[int]bool)
	for i := 0; i < interleave && len(order) < count; i++ {
		for s := first + i; s < first+count; s += interleave {
			if !seen[s] {
				order = append(order, s)
				seen[s] = true
			}
		}
	}
	return order
}
