package sevenzip

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// stageStream copies r into memory up to threshold bytes (a non-positive
// threshold means "no limit, stage everything in memory"). If the stream
// turns out to be larger, the bytes already buffered plus the remainder
// of r are written out to a temporary file on fs instead, and the
// returned path is non-empty so the caller knows to remove it later.
func stageStream(fs afero.Fs, r io.Reader, threshold int64) (io.ReaderAt, int64, string, error) {
	var buf bytes.Buffer

	limit := threshold
	if limit <= 0 {
		limit = 1<<63 - 1
	}

	n, err := io.CopyN(&buf, r, limit)
	if err != nil && err != io.EOF { //nolint:errorlint
		return nil, 0, "", fmt.Errorf("sevenzip: error staging stream: %w", err)
	}

	if err == io.EOF || n < limit { //nolint:errorlint
		// The whole stream fit within the threshold.
		return bytes.NewReader(buf.Bytes()), int64(buf.Len()), "", nil
	}

	// More data remains: spill what we've buffered, plus the rest of r,
	// to a temporary file.
	f, ferr := afero.TempFile(fs, "", "sevenzip-*.7z")
	if ferr != nil {
		return nil, 0, "", fmt.Errorf("sevenzip: error creating staging file: %w", ferr)
	}

	size, cerr := io.Copy(f, io.MultiReader(&buf, r))
	if cerr != nil {
		_ = f.Close()
		_ = fs.Remove(f.Name())

		return nil, 0, "", fmt.Errorf("sevenzip: error staging stream: %w", cerr)
	}

	return f, size, f.Name(), nil
}

// OpenReaderFromStream opens a 7-zip archive supplied as an opaque,
// non-seekable byte stream rather than a seekable file, per the external
// interface's "archive input" contract: 7z requires random access into
// its trailing metadata block, so the stream is staged to a temporary
// file (or, if it fits within [WithMemoryThreshold] bytes, kept entirely
// in memory) before parsing begins. The staging file, if any, is removed
// when the returned [*ReadCloser] is closed.
func OpenReaderFromStream(r io.Reader, opts ...Option) (*ReadCloser, error) {
	o := applyOptions(opts...)
	fs := afero.NewOsFs()

	reader, size, path, err := stageStream(fs, r, o.memoryThreshold)
	if err != nil {
		return nil, err
	}

	rc := new(ReadCloser)
	rc.setOptions(o)

	if path != "" {
		rc.stagingFs = fs
		rc.stagingPath = path
	}

	if err := rc.init(reader, size); err != nil {
		if path != "" {
			_ = fs.Remove(path)
		}

		return nil, fmt.Errorf("sevenzip: error initialising: %w", err)
	}

	return rc, nil
}
