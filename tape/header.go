package tape

import (
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

// Tape header block file types.
const (
	FileTypeBasic       = 0
	FileTypeData        = 1
	FileTypeMachineCode = 2
)

const headerPayloadSize = 15

// Header is the decoded form of a tape header block's 15-byte
// payload.
type Header struct {
	Filename string
	FileType byte
	IsASCII  bool
	IsGapped bool
	LoadAddr uint16
	StartAddr uint16
}

// EncodeHeaderPayload builds the 15-byte payload for a tape header
// block. Filename is space-padded to 8 characters and uppercased by
// the caller's choice of Filename value - it is written as given.
//
// The ASCII flag is written inverted relative to the boolean it
// carries (0x00 when h.IsASCII is true, 0xFF when false) following
// the cassette format's own convention that 0x00 marks plain ASCII
// text and 0xFF marks a binary (tokenized or machine-code) payload;
// the gap flag is written the ordinary way (0xFF when true, 0x00 when
// false).
func EncodeHeaderPayload(h Header) []byte {
	payload := make([]byte, headerPayloadSize)
	name := h.Filename
	if len(name) > 8 {
		name = name[:8]
	}
	copy(payload[0:8], name)
	for i := len(name); i < 8; i++ {
		payload[i] = ' '
	}
	payload[8] = h.FileType
	if h.IsASCII {
		payload[9] = 0x00
	} else {
		payload[9] = 0xFF
	}
	if h.IsGapped {
		payload[10] = 0xFF
	} else {
		payload[10] = 0x00
	}
	payload[11] = byte(h.StartAddr >> 8)
	payload[12] = byte(h.StartAddr)
	payload[13] = byte(h.LoadAddr >> 8)
	payload[14] = byte(h.LoadAddr)
	return payload
}

// DecodeHeaderPayload parses a tape header block's 15-byte payload.
func DecodeHeaderPayload(payload []byte) (Header, error) {
	if len(payload) != headerPayloadSize {
		return Header{}, diskerr.InvalidFilef("tape header payload is %d bytes, want %d", len(payload), headerPayloadSize)
	}
	h := Header{
		Filename: trimTrailingSpaces(string(payload[0:8])),
		FileType: payload[8],
		IsASCII:  payload[9] == 0x00,
		IsGapped: payload[10] == 0xFF,
		StartAddr: uint16(payload[11])<<8 | uint16(payload[12]),
		LoadAddr:  uint16(payload[13])<<8 | uint16(payload[14]),
	}
	return h, nil
}

func trimTrailingSpaces(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == ' ' {
		end--
	}
	return s[:end]
}

// NewHeaderBlock builds the header Block for h, with its checksum
// computed over the encoded payload including the type byte.
func NewHeaderBlock(h Header) *Block {
	payload := EncodeHeaderPayload(h)
	b := &Block{Type: BlockTypeHeader, Payload: payload}
	b.StoredChecksum = b.computeChecksum()
	return b
}

// NewDataBlock builds a data Block carrying payload as-is. An empty
// payload is allowed; its checksum is (1 + 0) mod 256 = 1.
func NewDataBlock(payload []byte) *Block {
	b := &Block{Type: BlockTypeData, Payload: payload}
	b.StoredChecksum = b.computeChecksum()
	return b
}

// NewEOFBlock builds the zero-payload end-of-file Block.
func NewEOFBlock() *Block {
	b := &Block{Type: BlockTypeEOF}
	b.StoredChecksum = b.computeChecksum()
	return b
}
