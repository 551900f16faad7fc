package filesystem

import (
	"encoding/binary"
	"strings"

	"github.com/rolfmichelsen/dragontools/internal/crc24"
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

const (
	moduleSyncHigh        = 0x4A
	moduleSyncLow         = 0xFC
	moduleHeaderFixedSize = 9 // sync(2) + size(2) + name offset(2) + type/lang(1) + attr/rev(1) + parity(1)
	moduleTrailerSize     = 3 // 24-bit CRC, stored as its one's complement
)

// ModuleType is the high nibble of a module's type/language byte.
type ModuleType int

const (
	ModuleTypeProgram     ModuleType = 1
	ModuleTypeSubroutine  ModuleType = 2
	ModuleTypeMultiModule ModuleType = 3
	ModuleTypeData        ModuleType = 4
	ModuleTypeCustom      ModuleType = 0xC
	ModuleTypeSystem      ModuleType = 0xD
	ModuleTypeFileManager ModuleType = 0xE
	ModuleTypeDevDriver   ModuleType = 0xF
)

// Module is a parsed OS-9 executable module header: name, type,
// language, attributes, revision, the header parity byte, and the
// trailing 24-bit module CRC.
type Module struct {
	Name       string
	Type       ModuleType
	Language   int
	Attributes int
	Revision   int
	Parity     byte
	CRC        uint32
}

// ParseModule decodes an OS-9 module header and verifies its header
// parity byte and trailing 24-bit CRC.
//
// Grounded on the classic OS-9 module header layout (sync, size, name
// offset, type/language, attributes/revision, parity, trailer CRC).
// The CRC check reuses internal/crc24, itself a 24-bit generalization
// of internal/crc16's shift-register shape. The header parity byte's
// exact generating formula (a single check byte rather than the real
// OS-9 16-bit parity word) is this module's own choice: XOR of header
// bytes 0-7 against 0xFF.
func ParseModule(data []byte) (*Module, error) {
	if len(data) < moduleHeaderFixedSize+moduleTrailerSize {
		return nil, diskerr.InvalidFilef("OS-9 module is %d bytes, too short for a header", len(data))
	}
	if data[0] != moduleSyncHigh || data[1] != moduleSyncLow {
		return nil, diskerr.InvalidFilef("OS-9 module missing sync bytes")
	}

	size := int(binary.BigEndian.Uint16(data[2:4]))
	nameOffset := int(binary.BigEndian.Uint16(data[4:6]))
	typeLang := data[6]
	attrRev := data[7]
	parity := data[8]

	computedParity := byte(0xFF)
	for _, b := range data[:8] {
		computedParity ^= b
	}
	if computedParity != parity {
		return nil, diskerr.CRCf("OS-9 module header parity mismatch: got %#x, want %#x", parity, computedParity)
	}

	if size > len(data) || size < moduleHeaderFixedSize+moduleTrailerSize {
		return nil, diskerr.InvalidFilef("OS-9 module declares size %d, have %d bytes", size, len(data))
	}
	if nameOffset < 0 || nameOffset >= len(data) {
		return nil, diskerr.InvalidFilef("OS-9 module name offset %d out of range", nameOffset)
	}
	name := readModuleName(data[nameOffset:])

	body := data[:size-moduleTrailerSize]
	trailer := data[size-moduleTrailerSize : size]
	storedComplement := uint32(trailer[0])<<16 | uint32(trailer[1])<<8 | uint32(trailer[2])
	wantCRC := (^storedComplement) & 0xFFFFFF
	gotCRC := crc24.Compute(body)
	if gotCRC != wantCRC {
		return nil, diskerr.CRCf("OS-9 module CRC mismatch: computed %#06x, trailer expects %#06x", gotCRC, wantCRC)
	}

	return &Module{
		Name:       name,
		Type:       ModuleType(typeLang >> 4),
		Language:   int(typeLang & 0x0F),
		Attributes: int(attrRev >> 4),
		Revision:   int(attrRev & 0x0F),
		Parity:     parity,
		CRC:        gotCRC,
	}, nil
}

// readModuleName reads an OS-9 module name: ASCII characters with the
// high bit set on the final character, serving as its own terminator.
func readModuleName(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		ch := c & 0x7F
		if ch == 0 {
			break
		}
		b.WriteByte(ch)
		if c&0x80 != 0 {
			break
		}
	}
	return b.String()
}
