// Package deflate implements the Deflate decompressor.
package deflate

import (
	"fmt"
	"io"
	"sync"

	"github.com/go7z/sevenzip/internal/util"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/flate"
)

//nolint:gochecknoglobals
var flateReaderPool sync.Pool

// NewReader returns a new DEFLATE io.ReadCloser, reusing a pooled
// klauspost/compress flate.Reader when one is available in preference to
// allocating a fresh one.
func NewReader(_ []byte, _ uint64, readers []io.ReadCloser) (io.ReadCloser, error) {
	if err := util.RequireReaders("deflate", readers, 1); err != nil {
		return nil, err
	}

	fr, ok := flateReaderPool.Get().(io.ReadCloser)
	if ok {
		if resetter, ok := fr.(flate.Resetter); ok {
			if err := resetter.Reset(util.ByteReadCloser(readers[0]), nil); err != nil {
				return nil, fmt.Errorf("deflate: error resetting: %w", err)
			}
		}
	} else {
		fr = flate.NewReader(util.ByteReadCloser(readers[0]))
	}

	return &util.SingleInputCloser{
		Name: "deflate",
		In:   readers[0],
		R:    fr,
		CloseFunc: func(in io.Closer) error {
			err := multierror.Append(fr.Close(), in.Close()).ErrorOrNil()
			flateReaderPool.Put(fr)

			return err
		},
	}, nil
}
