// Package delta implements the Delta filter: it undoes a simple byte-wise
// prediction scheme (each byte encoded as its difference from the byte
// "delta" positions earlier) that compressors elsewhere in the chain can
// exploit far better than raw differenced binary data.
package delta

import (
	"errors"
	"fmt"
	"io"

	"github.com/go7z/sevenzip/internal/util"
)

var errInsufficientProperties = errors.New("delta: not enough properties")

const historySize = 256

// deltaReader reconstructs original bytes by adding back a rolling
// history of the last "delta" already-decoded bytes, the same
// fixed-point arithmetic 7-Zip's own Delta.c performs.
type deltaReader struct {
	in      io.ReadCloser
	history [historySize]byte
	delta   int
	closed  bool
}

func (d *deltaReader) Close() error {
	if d.closed {
		return fmt.Errorf("delta: already closed")
	}

	d.closed = true

	if err := d.in.Close(); err != nil {
		return fmt.Errorf("delta: error closing: %w", err)
	}

	return nil
}

func (d *deltaReader) Read(p []byte) (int, error) {
	if d.closed {
		return 0, fmt.Errorf("delta: already closed")
	}

	n, err := d.in.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("delta: error reading: %w", err)
	}

	d.undelta(p[:n])

	return n, err
}

// undelta walks p in place, adding each byte to the rolling history
// "delta" positions back and feeding the result back into that history
// for the next call.
func (d *deltaReader) undelta(p []byte) {
	var window [historySize]byte

	copy(window[:], d.history[:d.delta])

	pos := 0

	for pos < len(p) {
		for j := 0; j < d.delta && pos < len(p); j++ {
			p[pos] += window[j]
			window[j] = p[pos]
			pos++
		}
	}

	tail := len(p) % d.delta
	copy(d.history[:], window[tail:d.delta])
	copy(d.history[d.delta-tail:], window[:tail])
}

// NewReader returns a new Delta io.ReadCloser. The single property byte
// holds delta-1 (the distance back into the byte stream each prediction
// reaches).
func NewReader(p []byte, _ uint64, readers []io.ReadCloser) (io.ReadCloser, error) {
	if err := util.RequireReaders("delta", readers, 1); err != nil {
		return nil, err
	}

	if len(p) != 1 {
		return nil, errInsufficientProperties
	}

	return &deltaReader{in: readers[0], delta: int(p[0] + 1)}, nil
}
