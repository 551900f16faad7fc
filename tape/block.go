package tape

import (
	"fmt"

	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

// Tape block types.
const (
	BlockTypeHeader = 0x00
	BlockTypeData   = 0x01
	BlockTypeEOF    = 0xFF
)

const (
	leaderByte   = 0x55
	framingByte  = 0x3C
	trailerByte  = 0x55
	maxBlockSize = 255
)

// Block is one leader/framing/type/length/payload/checksum/trailer
// unit of the cassette protocol.
type Block struct {
	Type           byte
	Payload        []byte
	StoredChecksum byte
}

// computeChecksum is (block_type + length + sum(payload)) mod 256.
func (b *Block) computeChecksum() byte {
	sum := int(b.Type) + len(b.Payload)
	for _, v := range b.Payload {
		sum += int(v)
	}
	return byte(sum % 256)
}

// Validate reports whether Type is one of the three known kinds and
// whether StoredChecksum matches the payload actually carried.
func (b *Block) Validate() error {
	switch b.Type {
	case BlockTypeHeader, BlockTypeData, BlockTypeEOF:
	default:
		return diskerr.InvalidBlockTypef("tape block type %#02x is not header/data/eof", b.Type)
	}
	if want := b.computeChecksum(); b.StoredChecksum != want {
		return diskerr.InvalidBlockChecksumf("tape block checksum %#02x, computed %#02x", b.StoredChecksum, want)
	}
	return nil
}

// ReadBlock scans s for the next block: a run of at least
// minLeaderLength 0x55 bytes (found at whatever bit alignment it
// actually occurs at, not assumed byte-aligned), the 0x3C framing
// byte, then type/length/payload/checksum/trailer. The returned
// block's Validate has not been called; the caller decides whether to
// check it.
func ReadBlock(s *BitStream, minLeaderLength int) (*Block, error) {
	if err := scanLeader(s, minLeaderLength); err != nil {
		return nil, err
	}
	if err := scanFraming(s); err != nil {
		return nil, err
	}
	blockType, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	length, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	payload, err := s.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}
	checksum, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	if _, err := s.ReadByte(); err != nil { // trailer byte
		return nil, err
	}
	return &Block{Type: blockType, Payload: payload, StoredChecksum: checksum}, nil
}

// scanLeader advances s past a run of at least minLeaderLength 0x55
// bytes, trying every bit alignment starting at s's current position
// since a cassette capture is not guaranteed to start byte-aligned on
// the leader tone.
func scanLeader(s *BitStream, minLeaderLength int) error {
	start := s.bitPos
	for base := start; ; base++ {
		count := 0
		pos := base
		for {
			b, err := s.peekByte(pos)
			if err != nil {
				return diskerr.EndOfTapef("no %d-byte leader found before end of tape", minLeaderLength)
			}
			if b != leaderByte {
				break
			}
			count++
			pos += 8
		}
		if count >= minLeaderLength {
			s.bitPos = pos
			return nil
		}
	}
}

// scanFraming advances s past any further leader bytes and the 0x3C
// framing byte that follows them, resynchronizing bit by bit if the
// byte at the current alignment is neither.
func scanFraming(s *BitStream) error {
	for {
		b, err := s.peekByte(s.bitPos)
		if err != nil {
			return diskerr.EndOfTapef("no framing byte found before end of tape")
		}
		switch b {
		case framingByte:
			s.bitPos += 8
			return nil
		case leaderByte:
			s.bitPos += 8
		default:
			s.bitPos++
		}
	}
}

// WriteBlock appends a block to w: leaderLength 0x55 bytes, the 0x3C
// framing byte, type, length, payload, the computed checksum, and one
// trailing 0x55 byte. Passing a data-block payload longer than 255
// bytes is a caller error since the on-wire length field is one byte.
func WriteBlock(w *BitWriter, leaderLength int, b *Block) error {
	if len(b.Payload) > maxBlockSize {
		return fmt.Errorf("tape: block payload is %d bytes, maximum is %d", len(b.Payload), maxBlockSize)
	}
	for i := 0; i < leaderLength; i++ {
		w.WriteByte(leaderByte)
	}
	w.WriteByte(framingByte)
	w.WriteByte(b.Type)
	w.WriteByte(byte(len(b.Payload)))
	w.WriteBytes(b.Payload)
	w.WriteByte(b.computeChecksum())
	w.WriteByte(trailerByte)
	return nil
}
