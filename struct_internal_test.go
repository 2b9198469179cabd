package sevenzip

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFolderReadCloserSeek drives folderReadCloser.Seek's whence/bounds
// checking and forward-discard behaviour against a synthetic in-memory
// folder (see newSyntheticSolidFolder in splitter_open_test.go) rather
// than a binary archive fixture, since decompression never actually
// supports random access: Seek can only fast-forward by discarding
// already-produced bytes, never rewind.
func TestFolderReadCloserSeek(t *testing.T) {
	t.Parallel()

	content := []byte("the quick brown fox jumps over the lazy dog, twice over")

	z, files := newSyntheticSolidFolder(t, content)

	rc, _, _, err := z.folderReader(z.si, files[0].folder)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, rc.Close())
	}()

	_, err = rc.Seek(0, math.MaxInt)
	assert.Equal(t, errInvalidWhence, err)

	_, err = rc.Seek(-1, io.SeekStart)
	assert.Equal(t, errNegativeSeek, err)

	n, err := rc.Seek(1, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = rc.Seek(-1, io.SeekCurrent)
	assert.Equal(t, errSeekBackwards, err)

	size := int64(len(content))

	_, err = rc.Seek(size, io.SeekCurrent)
	assert.Equal(t, errSeekEOF, err)

	n, err = rc.Seek(size, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, size, n)

	n, err = rc.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, size, n)
}
