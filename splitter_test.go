package sevenzip

import (
	"bytes"
	"hash/crc32"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crcOf(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

func TestFolderSplitterSequential(t *testing.T) {
	t.Parallel()

	a, b := []byte("hello"), []byte("world!")

	s := newFolderSplitter(bytes.NewReader(append(append([]byte{}, a...), b...)),
		[]uint64{uint64(len(a)), uint64(len(b))},
		[]uint32{crcOf(a), crcOf(b)})

	r1, err := s.next()
	require.NoError(t, err)

	got1, err := io.ReadAll(r1)
	require.NoError(t, err)
	assert.Equal(t, a, got1)

	r2, err := s.next()
	require.NoError(t, err)

	got2, err := io.ReadAll(r2)
	require.NoError(t, err)
	assert.Equal(t, b, got2)

	_, err = s.next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFolderSplitterOutOfOrder(t *testing.T) {
	t.Parallel()

	a, b := []byte("hello"), []byte("world!")

	s := newFolderSplitter(bytes.NewReader(append(append([]byte{}, a...), b...)),
		[]uint64{uint64(len(a)), uint64(len(b))},
		[]uint32{crcOf(a), crcOf(b)})

	_, err := s.next()
	require.NoError(t, err)

	_, err = s.next()
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestFolderSplitterCRCMismatch(t *testing.T) {
	t.Parallel()

	a := []byte("hello")

	s := newFolderSplitter(bytes.NewReader(a), []uint64{uint64(len(a))}, []uint32{crcOf(a) ^ 0xff})

	r, err := s.next()
	require.NoError(t, err)

	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, ErrCRCMismatch)
}

func TestFolderSplitterDrainAfterPartialRead(t *testing.T) {
	t.Parallel()

	a, b := []byte("hello"), []byte("world!")

	s := newFolderSplitter(bytes.NewReader(append(append([]byte{}, a...), b...)),
		[]uint64{uint64(len(a)), uint64(len(b))},
		[]uint32{crcOf(a), crcOf(b)})

	r1, err := s.next()
	require.NoError(t, err)

	buf := make([]byte, 2)
	n, err := r1.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.next()
	assert.ErrorIs(t, err, ErrOutOfOrder)

	_, err = io.ReadAll(r1)
	require.NoError(t, err)

	r2, err := s.next()
	require.NoError(t, err)

	got2, err := io.ReadAll(r2)
	require.NoError(t, err)
	assert.Equal(t, b, got2)
}
