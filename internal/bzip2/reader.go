// Package bzip2 implements the Bzip2 decompressor.
package bzip2

import (
	"compress/bzip2"
	"io"

	"github.com/go7z/sevenzip/internal/util"
)

// NewReader returns a new bzip2 io.ReadCloser.
func NewReader(_ []byte, _ uint64, readers []io.ReadCloser) (io.ReadCloser, error) {
	if err := util.RequireReaders("bzip2", readers, 1); err != nil {
		return nil, err
	}

	return &util.SingleInputCloser{
		Name: "bzip2",
		In:   readers[0],
		R:    bzip2.NewReader(readers[0]),
	}, nil
}
