package sevenzip

import (
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/go7z/sevenzip/internal/util"
)

// ErrOutOfOrder is returned by [*folderSplitter.next] when the previous
// sub-reader it handed out has not been fully drained. The splitter only
// ever exposes one file's bytes at a time from the single underlying
// folder stream, so a caller must finish (or explicitly discard) file i
// before it can move on to file i+1.
var ErrOutOfOrder = errors.New("sevenzip: entry requested before previous entry was drained")

// folderSplitter carves a solid folder's single decompressed byte stream
// into one lazily-materialised sub-reader per file, in the exact order
// the folder's files appear. Unlike [internal/pool]'s offset-keyed LRU
// (which exists to serve repeated random-access [Reader.Open] calls), the
// splitter assumes strictly sequential, single-pass consumption: the
// natural shape of an archive extractor walking entries in folder order.
type folderSplitter struct {
	r      io.Reader
	sizes  []uint64
	crcs   []uint32
	index  int
	active *splitterEntry
}

type splitterEntry struct {
	s    *folderSplitter
	n    int64
	h    hash.Hash32
	done bool
}

func newFolderSplitter(r io.Reader, sizes []uint64, crcs []uint32) *folderSplitter {
	return &folderSplitter{r: r, sizes: sizes, crcs: crcs}
}

// next returns an io.Reader over the next file's bytes. It returns
// ErrOutOfOrder if the previously returned reader still has unread bytes
// remaining, and io.EOF once every file has been handed out.
func (s *folderSplitter) next() (io.Reader, error) {
	if s.active != nil && !s.active.done {
		return nil, ErrOutOfOrder
	}

	if s.index >= len(s.sizes) {
		return nil, io.EOF
	}

	var crc uint32
	if s.index < len(s.crcs) {
		crc = s.crcs[s.index]
	}

	e := &splitterEntry{
		s: s,
		n: int64(s.sizes[s.index]), //nolint:gosec
		h: crc32.NewIEEE(),
	}

	s.active = e
	s.index++

	return &splitterEntryReader{entry: e, crc: crc}, nil
}

type splitterEntryReader struct {
	entry *splitterEntry
	crc   uint32
}

func (r *splitterEntryReader) Read(p []byte) (int, error) {
	e := r.entry

	if e.n <= 0 {
		if !e.done {
			e.done = true

			if r.crc != 0 && !util.CRC32Equal(e.h.Sum(nil), r.crc) {
				return 0, fmt.Errorf("sevenzip: %w", ErrCRCMismatch)
			}
		}

		return 0, io.EOF
	}

	if int64(len(p)) > e.n {
		p = p[0:e.n]
	}

	n, err := e.s.r.Read(p)
	e.n -= int64(n)

	if n > 0 {
		_, _ = e.h.Write(p[:n])
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("sevenzip: error reading folder stream: %w", err)
	}

	if e.n <= 0 && !e.done {
		e.done = true

		if r.crc != 0 && !util.CRC32Equal(e.h.Sum(nil), r.crc) {
			return n, fmt.Errorf("sevenzip: %w", ErrCRCMismatch)
		}
	}

	return n, err //nolint:wrapcheck
}
