// Package mfm implements the Modified Frequency Modulation codec used
// by WD279X-compatible floppy controllers: it wraps an underlying
// byte stream (the raw, encoded bits as they sit on a track) and
// exposes a decoded byte stream, plus awareness of the special A1
// sync sequence whose clock bit is suppressed.
//
// The bit-level sync scanning and byte assembly follow the sergev-fdx
// mfm reader's approach (Reader.readHalfBit/readBit/readByte, and the
// sync "history" shift register in scanIBMPC), expressing the same
// two-bits-per-data-bit shape but at byte (not arbitrary bit)
// granularity, since every sync and data byte is already byte-aligned
// once the preamble has been found.
package mfm

import (
	"io"

	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

// syncHi, syncLo are the two encoded bytes representing the A1 sync
// mark: 0xA1 with its clock bit suppressed so that it can never be
// produced by encoding an ordinary data byte.
const (
	syncHi byte = 0x22
	syncLo byte = 0x91
	// SyncByte is the decoded byte value a sync mark represents.
	SyncByte byte = 0xA1
)

// nibbleTable[(lastBit<<4)|nibble] is the MFM-encoded byte for a
// 4-bit nibble, given the last data bit emitted before it.
var nibbleTable [32]byte

func init() {
	for lastBit := byte(0); lastBit < 2; lastBit++ {
		for nibble := byte(0); nibble < 16; nibble++ {
			nibbleTable[(lastBit<<4)|nibble] = encodeNibble(lastBit, nibble)
		}
	}
}

// encodeNibble MFM-encodes a 4-bit nibble (bits 3..0, most significant
// first), given the data bit emitted immediately before it. A clock
// bit is 1 exactly when both the preceding data bit and the current
// data bit are 0. The four (clock,data) pairs are emitted in nibble
// order and packed into the output byte with the first-emitted bit as
// bit 0 and the last-emitted bit as bit 7 - the wire sends clock/data
// pairs serially, earliest bit first, and this is the byte that
// results from shifting them in from the low end.
func encodeNibble(lastBit, nibble byte) byte {
	var bits [8]byte
	prev := lastBit
	idx := 0
	for i := 3; i >= 0; i-- {
		bit := (nibble >> uint(i)) & 1
		var clock byte
		if prev == 0 && bit == 0 {
			clock = 1
		}
		bits[idx] = clock
		idx++
		bits[idx] = bit
		idx++
		prev = bit
	}
	var out byte
	for k := 0; k < 8; k++ {
		out |= bits[k] << uint(k)
	}
	return out
}

// decodeNibble extracts the 4 data bits from an MFM-encoded byte,
// ignoring the clock bits. Data bits sit at bit positions 1,3,5,7 (the
// inverse of encodeNibble's packing), in nibble order MSB to LSB.
func decodeNibble(b byte) byte {
	d0 := (b >> 1) & 1
	d1 := (b >> 3) & 1
	d2 := (b >> 5) & 1
	d3 := (b >> 7) & 1
	return d0<<3 | d1<<2 | d2<<1 | d3
}

// Stream wraps an underlying seekable byte stream holding MFM-encoded
// bits and presents a decoded byte view plus sync awareness.
//
// Position and length on the decoded side are always the underlying
// stream's position/length divided by 2: every decoded byte occupies
// exactly two encoded bytes.
type Stream struct {
	under   io.ReadWriteSeeker
	lastBit byte
}

// New wraps under as an MFM-encoded stream.
func New(under io.ReadWriteSeeker) *Stream {
	return &Stream{under: under}
}

// ReadByte reads one decoded byte. If the two encoded bytes read are
// the literal sync sequence, it returns (SyncByte, true, nil).
// Otherwise it returns the decoded data byte and sync=false. At end
// of the underlying stream it returns an EndOfStream error.
func (s *Stream) ReadByte() (value byte, sync bool, err error) {
	var buf [2]byte
	if _, err := io.ReadFull(s.under, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, false, diskerr.EndOfStreamf("mfm: end of stream")
		}
		return 0, false, err
	}
	if buf[0] == syncHi && buf[1] == syncLo {
		return SyncByte, true, nil
	}
	return (decodeNibble(buf[0]) << 4) | decodeNibble(buf[1]), false, nil
}

// Read implements io.Reader over the decoded byte stream. Sync
// sequences decode to SyncByte like any other byte; callers that care
// about sync detection should use ReadByte instead.
func (s *Stream) Read(p []byte) (int, error) {
	for i := range p {
		b, _, err := s.ReadByte()
		if err != nil {
			if i > 0 && diskerr.IsEndOfStream(err) {
				return i, nil
			}
			return i, err
		}
		p[i] = b
	}
	return len(p), nil
}

// WriteByte MFM-encodes and writes one decoded data byte, updating
// the clock-bit continuity state. The last bit emitted by a decoded
// byte is always its own bit 0, so no table lookup is needed to carry
// the state forward: the byte value itself is the state.
func (s *Stream) WriteByte(b byte) error {
	hi := nibbleTable[(uint(s.lastBit)<<4)|uint(b>>4)]
	mid := (b >> 4) & 1
	lo := nibbleTable[(uint(mid)<<4)|uint(b&0xF)]
	if _, err := s.under.Write([]byte{hi, lo}); err != nil {
		return err
	}
	s.lastBit = b & 1
	return nil
}

// Write implements io.Writer over the decoded byte stream.
func (s *Stream) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := s.WriteByte(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// WriteAll MFM-encodes and writes every byte in p, returning only an
// error - a convenience for callers that write whole gap/preamble
// runs and don't need the byte count back.
func (s *Stream) WriteAll(p []byte) error {
	_, err := s.Write(p)
	return err
}

// WriteSync emits the literal A1-sync encoded sequence (0x22 0x91),
// bypassing the nibble table: the clock bit is suppressed on this one
// byte, producing a pattern no ordinary byte can encode.
func (s *Stream) WriteSync() error {
	if _, err := s.under.Write([]byte{syncHi, syncLo}); err != nil {
		return err
	}
	s.lastBit = SyncByte & 1
	return nil
}

// Seek seeks the decoded stream. Positions are halved/doubled against
// the underlying stream, since each decoded byte is two encoded
// bytes.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var encodedOffset int64
	switch whence {
	case io.SeekStart, io.SeekEnd:
		encodedOffset = offset * 2
	case io.SeekCurrent:
		encodedOffset = offset * 2
	}
	pos, err := s.under.Seek(encodedOffset, whence)
	if err != nil {
		return 0, err
	}
	return pos / 2, nil
}

// Len returns the decoded length, if the underlying stream exposes
// one via io.Seeker (seek to end and back).
func (s *Stream) Len() (int64, error) {
	cur, err := s.under.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.under.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.under.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end / 2, nil
}
