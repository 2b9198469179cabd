// Package util provides small shared helpers used across the sevenzip
// package and its codec implementations: CRC comparison, a bufio-backed
// byte reader adapter, and the composite reader interfaces the folder
// cache and BCJ2 decoder need.
package util

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ReadCloser is an io.ReadCloser that can also read a single byte at a
// time, which several codecs (BCJ2, DEFLATE) rely on to avoid their own
// buffering.
type ReadCloser interface {
	io.ReadCloser
	io.ByteReader
}

// SizeReadSeekCloser is a seekable, closeable reader that additionally
// knows its own total size. The folder cache pool keys entries by seek
// offset against readers of this shape.
type SizeReadSeekCloser interface {
	io.ReadSeekCloser
	Size() int64
}

type nopCloser struct {
	io.Reader
}

func (nopCloser) Close() error { return nil }

// NopCloser wraps r with a no-op Close, mirroring io.NopCloser but
// returning a concrete type cheap enough to embed in a slice of
// io.ReadCloser without an extra allocation per call site.
func NopCloser(r io.Reader) io.ReadCloser {
	return nopCloser{r}
}

type byteReadCloser struct {
	io.ReadCloser
	br io.ByteReader
}

func (b byteReadCloser) ReadByte() (byte, error) {
	return b.br.ReadByte()
}

// ByteReadCloser adapts rc into a ReadCloser, reusing rc's own ReadByte
// if it already implements io.ByteReader and otherwise wrapping it in a
// bufio.Reader.
func ByteReadCloser(rc io.ReadCloser) ReadCloser {
	if brc, ok := rc.(ReadCloser); ok {
		return brc
	}

	br, ok := rc.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(rc)
	}

	return byteReadCloser{ReadCloser: rc, br: br}
}

// SingleInputCloser gives a codec built over exactly one coder input the
// close-once/read-after-close bookkeeping that every such decompressor in
// this tree needs (LZMA, LZMA2, DEFLATE, BZip2): reject reads once Close
// has run, reject a second Close, and prefix wrapped errors with the
// codec's own name. Callers set In to the single underlying reader the
// decompressor was built from and R to the decoded stream it produces; if
// closing takes more than calling In.Close (DEFLATE returns its flate
// reader to a sync.Pool first), set CloseFunc instead.
type SingleInputCloser struct {
	Name      string
	In        io.Closer
	R         io.Reader
	CloseFunc func(io.Closer) error

	closed bool
}

func (s *SingleInputCloser) Read(p []byte) (int, error) {
	if s.closed || s.R == nil {
		return 0, fmt.Errorf("%s: already closed", s.Name)
	}

	n, err := s.R.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%s: error reading: %w", s.Name, err)
	}

	return n, err
}

func (s *SingleInputCloser) Close() error {
	if s.closed {
		return fmt.Errorf("%s: already closed", s.Name)
	}

	s.closed = true

	var err error
	if s.CloseFunc != nil {
		err = s.CloseFunc(s.In)
	} else {
		err = s.In.Close()
	}

	if err != nil {
		return fmt.Errorf("%s: error closing: %w", s.Name, err)
	}

	return nil
}

// RequireReaders checks that a coder was handed exactly n input streams,
// the shape every codec in this tree other than BCJ2 (which takes four)
// requires.
func RequireReaders(name string, readers []io.ReadCloser, n int) error {
	if len(readers) != n {
		return fmt.Errorf("%s: need exactly %d reader(s), got %d", name, n, len(readers))
	}

	return nil
}

// CRC32Equal reports whether the running CRC32 sum matches the declared
// value, comparing byte-for-byte rather than reparsing sum into a uint32
// so callers can pass the raw output of hash.Hash.Sum(nil) directly.
// hash/crc32's digest.Sum appends its bytes big-endian.
func CRC32Equal(sum []byte, want uint32) bool {
	var wantBytes [4]byte

	wantBytes[0] = byte(want >> 24)
	wantBytes[1] = byte(want >> 16)
	wantBytes[2] = byte(want >> 8)
	wantBytes[3] = byte(want)

	return bytes.Equal(sum, wantBytes[:])
}
