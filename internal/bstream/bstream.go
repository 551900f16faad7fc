// Package bstream contains small byte-stream helpers shared by the
// disk and tape codecs: read exactly n bytes, or read a stream to
// completion, following the read-to-completion idiom of io.ReadAll and
// the read-exactly idiom of io.ReadFull.
package bstream

import (
	"fmt"
	"io"

	"github.com/rolfmichelsen/dragontools/internal/diskerr"
)

// ReadExact reads exactly n bytes from r into a new slice, or returns
// an EndOfStream error if fewer bytes were available.
func ReadExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, diskerr.EndOfStreamf("unexpected end of stream: wanted %d bytes, got %d", n, read)
		}
		return nil, fmt.Errorf("reading %d bytes: %w", n, err)
	}
	return buf, nil
}

// ReadFully reads r until EOF and returns everything read.
func ReadFully(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stream to completion: %w", err)
	}
	return data, nil
}
