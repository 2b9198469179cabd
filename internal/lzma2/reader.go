// Package lzma2 implements the LZMA2 decompressor.
package lzma2

import (
	"errors"
	"fmt"
	"io"

	"github.com/go7z/sevenzip/internal/util"
	"github.com/ulikunitz/xz/lzma"
)

var errInsufficientProperties = errors.New("lzma2: not enough properties")

// NewReader returns a new LZMA2 io.ReadCloser. The single property byte
// encodes the dictionary size; the bit-shuffle below to recover it is
// lifted from 7-Zip's own Lzma2Dec.c, not something ulikunitz/xz exposes
// directly.
func NewReader(p []byte, _ uint64, readers []io.ReadCloser) (io.ReadCloser, error) {
	if err := util.RequireReaders("lzma2", readers, 1); err != nil {
		return nil, err
	}

	if len(p) != 1 {
		return nil, errInsufficientProperties
	}

	config := lzma.Reader2Config{
		DictCap: (2 | (int(p[0]) & 1)) << (p[0]/2 + 11),
	}

	if err := config.Verify(); err != nil {
		return nil, fmt.Errorf("lzma2: error verifying config: %w", err)
	}

	lr, err := config.NewReader2(readers[0])
	if err != nil {
		return nil, fmt.Errorf("lzma2: error creating reader: %w", err)
	}

	return &util.SingleInputCloser{Name: "lzma2", In: readers[0], R: lr}, nil
}
