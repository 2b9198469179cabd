package sevenzip

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go7z/sevenzip/internal/aes7z"
	"github.com/go7z/sevenzip/internal/bcj2"
	"github.com/go7z/sevenzip/internal/bra"
	"github.com/go7z/sevenzip/internal/bzip2"
	"github.com/go7z/sevenzip/internal/deflate"
	"github.com/go7z/sevenzip/internal/delta"
	"github.com/go7z/sevenzip/internal/lzma"
	"github.com/go7z/sevenzip/internal/lzma2"
)

// Decompressor turns the input streams of a single coder into its
// decompressed output. properties is the coder's opaque property blob,
// size is the coder's declared unpack size (LZMA needs it up front), and
// readers holds one entry per coder input in order (four for BCJ2, one
// for everything else).
type Decompressor func(properties []byte, size uint64, readers []io.ReadCloser) (io.ReadCloser, error)

var (
	errPPMdUnsupported = errors.New("sevenzip: PPMd is recognised but not supported")
	errNeedOneReader   = errors.New("sevenzip: need exactly one reader")
)

//nolint:gochecknoglobals
var decompressors sync.Map

// RegisterDecompressor registers a Decompressor for the given codec ID
// (the raw method bytes as they appear in a folder's coder description).
// It panics on double registration for the same ID, matching the registry
// pattern used by encoding/gob and similar packages: that is a programming
// error, not something callers should recover from at runtime.
func RegisterDecompressor(id []byte, dcomp Decompressor) {
	if _, dup := decompressors.LoadOrStore(string(id), dcomp); dup {
		panic(fmt.Sprintf("sevenzip: decompressor already registered for %x", id))
	}
}

func decompressor(id []byte) Decompressor {
	v, ok := decompressors.Load(string(id))
	if !ok {
		return nil
	}

	return v.(Decompressor) //nolint:forcetypeassert
}

func copyDecompressor(_ []byte, _ uint64, readers []io.ReadCloser) (io.ReadCloser, error) {
	if len(readers) != 1 {
		return nil, errNeedOneReader
	}

	return readers[0], nil
}

func ppmdDecompressor(_ []byte, _ uint64, readers []io.ReadCloser) (io.ReadCloser, error) {
	for _, r := range readers {
		_ = r.Close()
	}

	return nil, errPPMdUnsupported
}

//nolint:gochecknoinits
func init() {
	RegisterDecompressor([]byte{0x00}, Decompressor(copyDecompressor))
	RegisterDecompressor([]byte{0x03}, Decompressor(delta.NewReader))
	RegisterDecompressor([]byte{0x03, 0x01, 0x01}, Decompressor(lzma.NewReader))
	RegisterDecompressor([]byte{0x21}, Decompressor(lzma2.NewReader))

	RegisterDecompressor([]byte{0x03, 0x03, 0x01, 0x03}, Decompressor(bra.NewBCJReader))
	RegisterDecompressor([]byte{0x03, 0x03, 0x05, 0x01}, Decompressor(bra.NewARMReader))
	RegisterDecompressor([]byte{0x03, 0x03, 0x07, 0x01}, Decompressor(bra.NewARMThumbReader))
	RegisterDecompressor([]byte{0x03, 0x03, 0x0a, 0x01}, Decompressor(bra.NewARM64Reader))
	RegisterDecompressor([]byte{0x03, 0x03, 0x02, 0x05}, Decompressor(bra.NewPPCReader))
	RegisterDecompressor([]byte{0x03, 0x03, 0x04, 0x01}, Decompressor(bra.NewIA64Reader))
	RegisterDecompressor([]byte{0x03, 0x03, 0x08, 0x05}, Decompressor(bra.NewSPARCReader))
	RegisterDecompressor([]byte{0x03, 0x03, 0x01, 0x1b}, Decompressor(bcj2.NewReader))

	RegisterDecompressor([]byte{0x04, 0x01, 0x08}, Decompressor(deflate.NewReader))
	RegisterDecompressor([]byte{0x04, 0x02, 0x02}, Decompressor(bzip2.NewReader))

	RegisterDecompressor([]byte{0x06, 0xf1, 0x07, 0x01}, Decompressor(aes7z.NewReader))

	RegisterDecompressor([]byte{0x03, 0x04, 0x01}, Decompressor(ppmdDecompressor))
}
