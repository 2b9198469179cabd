package sevenzip

import (
	"hash/crc32"
	"io"
	"sync"
	"testing"

	"github.com/go7z/sevenzip/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSyntheticSolidFolder builds a Reader around a single solid (Copy
// coded) folder holding the given file contents back to back, without
// going through Reader.init's header-parsing machinery. It mirrors
// exactly the fields init would populate for such a folder so File.Open
// can drive the real openSequential/folderSplitterFor/folderReadCloser
// code paths against it.
func newSyntheticSolidFolder(tb testing.TB, contents ...[]byte) (*Reader, []*File) {
	tb.Helper()

	var packed []byte
	for _, c := range contents {
		packed = append(packed, c...)
	}

	f := &folder{
		in:            1,
		out:           1,
		packedStreams: 1,
		coder:         []*coder{{id: []byte{0x00}, in: 1, out: 1}},
		size:          []uint64{uint64(len(packed))},
		packed:        []uint64{0},
	}

	si := &streamsInfo{
		packInfo:   &packInfo{position: 0, streams: 1, size: []uint64{uint64(len(packed))}},
		unpackInfo: &unpackInfo{folder: []*folder{f}},
	}

	z := &Reader{
		r:     byteReaderAt(packed),
		start: 0,
		end:   int64(len(packed)),
		si:    si,
	}

	var err error

	z.pool = make([]pool.Pooler, 1)
	z.pool[0], err = pool.NewPool()
	require.NoError(tb, err)

	z.splitters = make([]*folderSplitter, 1)
	z.splitterNext = make([]int, 1)
	z.splitterCloser = make([]io.Closer, 1)
	z.folderMu = make([]sync.Mutex, 1)

	files := make([]*File, len(contents))
	offset := int64(0)

	for i, c := range contents {
		files[i] = &File{
			zip:    z,
			folder: 0,
			offset: offset,

			indexInFolder: i,
			FileHeader: FileHeader{
				Name:             "file",
				UncompressedSize: uint64(len(c)),
				CRC32:            crc32.ChecksumIEEE(c),
			},
		}
		offset += int64(len(c))
	}

	z.File = files
	z.folderFiles = [][]*File{files}

	return z, files
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}

	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// TestFileOpenSequentialSplitter drives two files that share one solid
// folder through File.Open in archive order and asserts that each comes
// back through the folderSplitter (C7) rather than the pool-backed
// random-access path, with correct content and a verified CRC.
func TestFileOpenSequentialSplitter(t *testing.T) {
	t.Parallel()

	content0 := []byte("the quick brown fox jumps over the lazy dog")
	content1 := []byte("pack my box with five dozen liquor jugs")

	z, files := newSyntheticSolidFolder(t, content0, content1)

	rc0, err := files[0].Open()
	require.NoError(t, err)

	assert.NotNil(t, z.splitters[0], "splitter should be created on first sequential open")

	got0, err := io.ReadAll(rc0)
	require.NoError(t, err)
	assert.Equal(t, content0, got0)
	require.NoError(t, rc0.Close())

	assert.Equal(t, 1, z.splitterNext[0], "splitterNext should advance after the first file drains")
	assert.NotNil(t, z.splitterCloser[0], "shared folder stream stays open until the last file in the folder is drained")

	rc1, err := files[1].Open()
	require.NoError(t, err)

	got1, err := io.ReadAll(rc1)
	require.NoError(t, err)
	assert.Equal(t, content1, got1)
	require.NoError(t, rc1.Close())

	assert.Equal(t, 2, z.splitterNext[0])
	assert.Nil(t, z.splitterCloser[0], "shared folder stream closes once the last file in the folder drains")
}

// TestFileOpenSequentialSplitterCRCMismatch confirms a corrupted entry
// fails CRC verification when read through the splitter path.
func TestFileOpenSequentialSplitterCRCMismatch(t *testing.T) {
	t.Parallel()

	content0 := []byte("the quick brown fox jumps over the lazy dog")
	content1 := []byte("pack my box with five dozen liquor jugs")

	_, files := newSyntheticSolidFolder(t, content0, content1)
	files[0].FileHeader.CRC32 ^= 0xffffffff

	rc, err := files[0].Open()
	require.NoError(t, err)

	_, err = io.ReadAll(rc)
	assert.ErrorIs(t, err, ErrCRCMismatch)
}

// TestFileOpenOutOfOrderFallsBackToPool confirms that opening the second
// file in a solid folder before the first one still succeeds, by falling
// back to the offset-keyed random-access pool (C6) instead of the
// sequential splitter.
func TestFileOpenOutOfOrderFallsBackToPool(t *testing.T) {
	t.Parallel()

	content0 := []byte("the quick brown fox jumps over the lazy dog")
	content1 := []byte("pack my box with five dozen liquor jugs")

	z, files := newSyntheticSolidFolder(t, content0, content1)

	rc1, err := files[1].Open()
	require.NoError(t, err)

	assert.Nil(t, z.splitters[0], "an out-of-order open must not take the sequential splitter path")

	got1, err := io.ReadAll(rc1)
	require.NoError(t, err)
	assert.Equal(t, content1, got1)
	require.NoError(t, rc1.Close())
}
