// Package tape implements the Dragon/CoCo cassette (CAS) tape block
// protocol: a bit-level view over a byte stream, framed blocks with a
// leader, sync marker, type/length/payload/checksum, and
// resynchronization when the bit stream starts out misaligned.
//
// The whole image is read fully into a byte slice before interpreting
// it. Sync scanning uses the same shifting-window technique as MFM
// sync detection (compare against a target pattern, advance one bit at
// a time on mismatch), here applied to byte-level 0x55/0x3C patterns
// instead of MFM nibbles.
package tape

import (
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

// BitStream is a read cursor over a byte buffer, addressed at
// bit granularity, MSB-first within each byte. Its bit position is
// tracked independently of any byte-level access to the same buffer.
type BitStream struct {
	data   []byte
	bitPos int64
}

// NewBitStream wraps an existing byte buffer for bit-level reading.
func NewBitStream(data []byte) *BitStream {
	return &BitStream{data: data}
}

// BitPosition returns the current absolute bit offset.
func (s *BitStream) BitPosition() int64 { return s.bitPos }

// SeekBit moves the cursor to an absolute bit offset.
func (s *BitStream) SeekBit(pos int64) { s.bitPos = pos }

// ReadBit returns the next bit, MSB-first within its byte, and
// advances the cursor by one bit.
func (s *BitStream) ReadBit() (byte, error) {
	bit, err := s.peekBit(s.bitPos)
	if err != nil {
		return 0, err
	}
	s.bitPos++
	return bit, nil
}

func (s *BitStream) peekBit(pos int64) (byte, error) {
	byteIdx := pos / 8
	if byteIdx < 0 || byteIdx >= int64(len(s.data)) {
		return 0, diskerr.EndOfTapef("end of tape at bit %d", pos)
	}
	bitIdx := 7 - uint(pos%8)
	return (s.data[byteIdx] >> bitIdx) & 1, nil
}

// peekByte returns the 8-bit value starting at an absolute bit
// position, without moving the cursor.
func (s *BitStream) peekByte(pos int64) (byte, error) {
	var b byte
	for i := int64(0); i < 8; i++ {
		bit, err := s.peekBit(pos + i)
		if err != nil {
			return 0, err
		}
		b = (b << 1) | bit
	}
	return b, nil
}

// ReadByte reads 8 bits MSB-first from the cursor and advances it by 8.
func (s *BitStream) ReadByte() (byte, error) {
	b, err := s.peekByte(s.bitPos)
	if err != nil {
		return 0, err
	}
	s.bitPos += 8
	return b, nil
}

// ReadBytes reads n bytes via ReadByte.
func (s *BitStream) ReadBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		b, err := s.ReadByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// BitWriter accumulates bits MSB-first and flushes a byte after every
// 8 writes.
type BitWriter struct {
	data  []byte
	cur   byte
	count uint
}

// NewBitWriter returns an empty bit writer.
func NewBitWriter() *BitWriter { return &BitWriter{} }

// WriteBit accumulates one bit, flushing a completed byte to the
// output buffer every 8th call.
func (w *BitWriter) WriteBit(bit byte) {
	w.cur = (w.cur << 1) | (bit & 1)
	w.count++
	if w.count == 8 {
		w.data = append(w.data, w.cur)
		w.cur = 0
		w.count = 0
	}
}

// WriteByte writes 8 bits MSB-first via WriteBit.
func (w *BitWriter) WriteByte(b byte) {
	for i := 7; i >= 0; i-- {
		w.WriteBit((b >> uint(i)) & 1)
	}
}

// WriteBytes writes every byte in p via WriteByte.
func (w *BitWriter) WriteBytes(p []byte) {
	for _, b := range p {
		w.WriteByte(b)
	}
}

// Bytes returns the bytes written so far. A partial trailing byte (an
// incomplete run of WriteBit calls not yet flushed) is zero-padded and
// included without mutating the writer's own state.
func (w *BitWriter) Bytes() []byte {
	if w.count == 0 {
		return w.data
	}
	out := make([]byte, len(w.data)+1)
	copy(out, w.data)
	out[len(w.data)] = w.cur << (8 - w.count)
	return out
}
