package sevenzip

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageStreamInMemory(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	data := bytes.Repeat([]byte{0x42}, 64)

	r, size, path, err := stageStream(fs, bytes.NewReader(data), 1024)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, int64(len(data)), size)

	got := make([]byte, len(data))
	_, err = r.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStageStreamSpillsToDisk(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	data := bytes.Repeat([]byte{0x7a}, 256)

	r, size, path, err := stageStream(fs, bytes.NewReader(data), 64)
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.Equal(t, int64(len(data)), size)

	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.True(t, exists)

	got := make([]byte, len(data))
	_, err = r.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStageStreamNonPositiveThreshold(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	data := bytes.Repeat([]byte{0x01}, 1<<20)

	_, size, path, err := stageStream(fs, bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, int64(len(data)), size)
}

func TestOpenReaderFromStreamNotASevenZip(t *testing.T) {
	t.Parallel()

	_, err := OpenReaderFromStream(bytes.NewReader([]byte("not a 7z archive")))
	require.Error(t, err)
}
