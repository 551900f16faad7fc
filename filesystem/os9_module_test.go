package filesystem

import (
	"testing"

	"github.com/rolfmichelsen/dragontools/internal/crc24"
	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

// buildModule assembles a minimal, internally-consistent OS-9 module
// blob: a 9-byte fixed header immediately followed by a name string
// (high bit set on its last character) and a 3-byte CRC trailer.
func buildModule(t *testing.T, moduleType ModuleType, language, attrs, revision int, name string) []byte {
	t.Helper()
	nameBytes := []byte(name)
	for i := range nameBytes {
		if i == len(nameBytes)-1 {
			nameBytes[i] |= 0x80
		}
	}

	const nameOffset = moduleHeaderFixedSize
	size := moduleHeaderFixedSize + len(nameBytes) + moduleTrailerSize

	header := make([]byte, moduleHeaderFixedSize)
	header[0] = moduleSyncHigh
	header[1] = moduleSyncLow
	header[2] = byte(size >> 8)
	header[3] = byte(size)
	header[4] = byte(nameOffset >> 8)
	header[5] = byte(nameOffset)
	header[6] = byte(moduleType)<<4 | byte(language)
	header[7] = byte(attrs)<<4 | byte(revision)

	parity := byte(0xFF)
	for _, b := range header[:8] {
		parity ^= b
	}
	header[8] = parity

	body := append(append([]byte{}, header...), nameBytes...)
	sum := crc24.Compute(body)
	complement := (^sum) & 0xFFFFFF

	full := append(body, byte(complement>>16), byte(complement>>8), byte(complement))
	return full
}

func TestParseModuleRoundTrip(t *testing.T) {
	data := buildModule(t, ModuleTypeProgram, 1, 8, 1, "List")

	m, err := ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if m.Name != "List" {
		t.Errorf("Name = %q, want %q", m.Name, "List")
	}
	if m.Type != ModuleTypeProgram {
		t.Errorf("Type = %v, want %v", m.Type, ModuleTypeProgram)
	}
	if m.Language != 1 {
		t.Errorf("Language = %d, want 1", m.Language)
	}
	if m.Attributes != 8 {
		t.Errorf("Attributes = %d, want 8", m.Attributes)
	}
	if m.Revision != 1 {
		t.Errorf("Revision = %d, want 1", m.Revision)
	}
	// Hand-verified: XOR of header bytes 0-7 (4A FC 00 10 00 09 11 81)
	// is 0x3F, so the parity byte (0xFF ^ 0x3F) is 0xC0.
	if m.Parity != 0xC0 {
		t.Errorf("Parity = %#x, want 0xC0", m.Parity)
	}
	if m.CRC != crc24.Compute(data[:len(data)-moduleTrailerSize]) {
		t.Errorf("CRC = %#06x, want %#06x", m.CRC, crc24.Compute(data[:len(data)-moduleTrailerSize]))
	}
}

func TestParseModuleRejectsBadSync(t *testing.T) {
	data := buildModule(t, ModuleTypeProgram, 1, 8, 1, "List")
	data[0] = 0x00
	if _, err := ParseModule(data); !diskerr.IsInvalidFile(err) {
		t.Errorf("ParseModule with bad sync error = %v, want InvalidFile kind", err)
	}
}

func TestParseModuleRejectsBadParity(t *testing.T) {
	data := buildModule(t, ModuleTypeProgram, 1, 8, 1, "List")
	data[7] ^= 0xFF
	if _, err := ParseModule(data); !diskerr.IsCRC(err) {
		t.Errorf("ParseModule with corrupted attr byte error = %v, want CRC kind", err)
	}
}

func TestParseModuleRejectsBadCRC(t *testing.T) {
	data := buildModule(t, ModuleTypeProgram, 1, 8, 1, "List")
	data[len(data)-1] ^= 0xFF
	if _, err := ParseModule(data); !diskerr.IsCRC(err) {
		t.Errorf("ParseModule with corrupted trailer error = %v, want CRC kind", err)
	}
}

func TestParseModuleRejectsTooShort(t *testing.T) {
	if _, err := ParseModule([]byte{0x4A, 0xFC}); !diskerr.IsInvalidFile(err) {
		t.Errorf("ParseModule on short data error = %v, want InvalidFile kind", err)
	}
}
