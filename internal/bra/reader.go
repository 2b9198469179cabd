package bra

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go7z/sevenzip/internal/util"
)

// converterReader drives a converter (the per-architecture branch
// rewriter implemented in bcj.go/arm.go/arm64.go/armthumb.go/ia64.go/
// ppc.go/sparc.go) over a buffered view of the underlying stream: each
// converter needs to see a little data ahead of its current position to
// recognise a branch instruction that straddles a Read boundary, so
// bytes are accumulated in buf rather than converted in place as they
// arrive.
type converterReader struct {
	in   io.ReadCloser
	buf  bytes.Buffer
	n    int
	conv converter
}

func (r *converterReader) Close() error {
	if r.in == nil {
		return fmt.Errorf("bra: already closed")
	}

	if err := r.in.Close(); err != nil {
		return fmt.Errorf("bra: error closing: %w", err)
	}

	r.in = nil

	return nil
}

func (r *converterReader) Read(p []byte) (int, error) {
	if r.in == nil {
		return 0, fmt.Errorf("bra: already closed")
	}

	want := max(len(p), r.conv.Size()) - r.buf.Len()

	if _, err := io.CopyN(&r.buf, r.in, int64(want)); err != nil {
		if !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("bra: error buffering: %w", err)
		}

		if r.buf.Len() < r.conv.Size() {
			r.n = r.buf.Len()
		}
	}

	r.n += r.conv.Convert(r.buf.Bytes()[r.n:], false)

	n, err := r.buf.Read(p[:min(r.n, len(p))])
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("bra: error reading: %w", err)
	}

	r.n -= n

	return n, err
}

func newReader(readers []io.ReadCloser, conv converter) (io.ReadCloser, error) {
	if err := util.RequireReaders("bra", readers, 1); err != nil {
		return nil, err
	}

	return &converterReader{in: readers[0], conv: conv}, nil
}
