// Package lzma implements the LZMA decompressor.
package lzma

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go7z/sevenzip/internal/util"
	"github.com/ulikunitz/xz/lzma"
)

// NewReader returns a new LZMA io.ReadCloser. The coder's declared unpack
// size is appended to its five-byte property blob to build the 13-byte
// header ulikunitz/xz's LZMA1 reader expects, since 7z carries that size
// out-of-band in the folder's unpack info rather than inline.
func NewReader(p []byte, s uint64, readers []io.ReadCloser) (io.ReadCloser, error) {
	if err := util.RequireReaders("lzma", readers, 1); err != nil {
		return nil, err
	}

	header := bytes.NewBuffer(p)
	_ = binary.Write(header, binary.LittleEndian, s)

	lr, err := lzma.NewReader(chainReader(header, readers[0]))
	if err != nil {
		return nil, fmt.Errorf("lzma: error creating reader: %w", err)
	}

	return &util.SingleInputCloser{Name: "lzma", In: readers[0], R: lr}, nil
}

// chainReader presents header followed by rc as a single stream,
// preserving rc's ReadByte if it has one so the LZMA decoder's
// byte-at-a-time range coder doesn't fall back to an extra bufio layer.
func chainReader(header *bytes.Buffer, rc io.ReadCloser) io.Reader {
	mr := io.MultiReader(header, rc)

	if br, ok := rc.(io.ByteReader); ok {
		return &headerThenByteReader{header: header, br: br, mr: mr}
	}

	return mr
}

type headerThenByteReader struct {
	header *bytes.Buffer
	br     io.ByteReader
	mr     io.Reader
}

func (h *headerThenByteReader) ReadByte() (byte, error) {
	var (
		b   byte
		err error
	)

	if h.header.Len() > 0 {
		b, err = h.header.ReadByte()
	} else {
		b, err = h.br.ReadByte()
	}

	if err != nil {
		return b, fmt.Errorf("lzma: error reading byte: %w", err)
	}

	return b, nil
}

func (h *headerThenByteReader) Read(p []byte) (int, error) {
	n, err := h.mr.Read(p)
	if err != nil {
		return n, fmt.Errorf("lzma: error reading: %w", err)
	}

	return n, nil
}
