// Package hfe implements the HFE floppy image format: a header block,
// a track-list block, and (heads x tracks) WD279X-encoded tracks
// whose two sides are interleaved 256 bytes at a time inside 512-byte
// blocks.
//
// Header layout and encoding/interface-mode constants follow sergev-fdx's
// hfe-img.go; the track deinterleave loop and v1/v3 signature/revision
// checks follow hfe-read.go, adapted from that package's one-shot
// decode-the-whole-disk style into a seekable per-track stream so the
// sector codec in track.go can scan and seek within one side's data the
// way the WD279X controller would read a real track.
package hfe

import (
	"io"

	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

const (
	blockSize              = 512
	halfBlockSize          = blockSize / 2
	initialTrackBufferSize = 16 * 1024
)

// RawTrack is a seekable byte stream giving a linear, single-side view
// over one track's data inside an HFE image. The file interleaves
// both sides' 256-byte half-blocks within each 512-byte block;
// RawTrack hides that and presents one side as a contiguous buffer.
type RawTrack struct {
	buf    []byte
	length int64
	pos    int64
	dirty  bool
}

// NewRawTrack creates a blank track buffer for initialization, with
// the source's default 16 KiB growable capacity - writes past that
// capacity grow the buffer rather than failing.
func NewRawTrack() *RawTrack {
	return &RawTrack{buf: make([]byte, 0, initialTrackBufferSize)}
}

// LoadRawTrack deinterleaves side (0 or 1) of the track whose encoded
// data begins at HFE block firstBlock and is lengthBytes long per
// side, out of the whole image's raw bytes.
func LoadRawTrack(image []byte, firstBlock, lengthBytes, side int) (*RawTrack, error) {
	blocks := (lengthBytes + halfBlockSize - 1) / halfBlockSize
	buf := make([]byte, 0, initialTrackBufferSize)
	for i := 0; i < blocks; i++ {
		blockStart := (firstBlock + i) * blockSize
		if blockStart+blockSize > len(image) {
			return nil, diskerr.ImageFormatf("HFE track data runs past end of image at block %d", firstBlock+i)
		}
		var half []byte
		if side == 0 {
			half = image[blockStart : blockStart+halfBlockSize]
		} else {
			half = image[blockStart+halfBlockSize : blockStart+blockSize]
		}
		buf = append(buf, half...)
	}
	if lengthBytes > len(buf) {
		lengthBytes = len(buf)
	}
	return &RawTrack{buf: buf, length: int64(lengthBytes)}, nil
}

func (t *RawTrack) Read(p []byte) (int, error) {
	if t.pos >= t.length {
		return 0, io.EOF
	}
	n := copy(p, t.buf[t.pos:t.length])
	t.pos += int64(n)
	return n, nil
}

func (t *RawTrack) Write(p []byte) (int, error) {
	end := t.pos + int64(len(p))
	if end > int64(cap(t.buf)) {
		grown := make([]byte, len(t.buf), end*2)
		copy(grown, t.buf)
		t.buf = grown
	}
	if end > int64(len(t.buf)) {
		t.buf = t.buf[:end]
	}
	copy(t.buf[t.pos:end], p)
	t.pos = end
	if end > t.length {
		t.length = end
	}
	t.dirty = true
	return len(p), nil
}

func (t *RawTrack) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = t.pos + offset
	case io.SeekEnd:
		newPos = t.length + offset
	}
	if newPos < 0 {
		return 0, diskerr.ImageFormatf("mfm: negative seek position %d", newPos)
	}
	t.pos = newPos
	return newPos, nil
}

// Len reports how many bytes of this track's side are in use.
func (t *RawTrack) Len() int64 { return t.length }

// blocksNeeded returns how many 512-byte HFE blocks this track's
// current data needs.
func (t *RawTrack) blocksNeeded() int {
	return int((t.length + halfBlockSize - 1) / halfBlockSize)
}

// StoreInto re-interleaves this side's data back into the whole-image
// byte buffer starting at HFE block firstBlock, growing image as
// needed. The other side's half-blocks already present are preserved.
func (t *RawTrack) StoreInto(image []byte, firstBlock, side int) []byte {
	blocks := t.blocksNeeded()
	needed := (firstBlock + blocks) * blockSize
	if needed > len(image) {
		grown := make([]byte, needed)
		copy(grown, image)
		image = grown
	}
	for i := 0; i < blocks; i++ {
		blockStart := (firstBlock + i) * blockSize
		lo := i * halfBlockSize
		hi := lo + halfBlockSize
		if hi > len(t.buf) {
			hi = len(t.buf)
		}
		half := make([]byte, halfBlockSize)
		copy(half, t.buf[lo:hi])
		if side == 0 {
			copy(image[blockStart:blockStart+halfBlockSize], half)
		} else {
			copy(image[blockStart+halfBlockSize:blockStart+blockSize], half)
		}
	}
	t.dirty = false
	return image
}
