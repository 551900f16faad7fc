package crc16

import "testing"

// TestAssociative checks that Add is associative over concatenation:
// crc(A++B) == crc.New().Add(A).Add(B).
func TestAssociative(t *testing.T) {
	a := []byte{0xA1, 0xA1, 0xA1, 0xFE, 0x00, 0x01, 0x02, 0x01}
	b := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x55, 0x66}

	whole := New()
	whole.AddBytes(append(append([]byte{}, a...), b...))

	split := New()
	split.AddBytes(a)
	split.AddBytes(b)

	if whole.Sum() != split.Sum() {
		t.Errorf("crc(a++b) = %04X, want %04X", split.Sum(), whole.Sum())
	}
}

// TestComputeMatchesManualAdd checks that Compute and a manual
// byte-by-byte Add loop agree.
func TestComputeMatchesManualAdd(t *testing.T) {
	data := []byte("HELLO WORLD")
	want := Compute(data)

	c := New()
	for _, b := range data {
		c.Add(b)
	}
	if got := c.Sum(); got != want {
		t.Errorf("manual Add loop = %04X, want %04X", got, want)
	}
}

// TestInitialValue checks the CRC of an empty input is the initial
// register value, per the WD279X convention (no final XOR).
func TestInitialValue(t *testing.T) {
	if got := Compute(nil); got != initial {
		t.Errorf("Compute(nil) = %04X, want %04X", got, initial)
	}
}
