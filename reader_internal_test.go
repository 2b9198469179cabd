//nolint:wrapcheck
package sevenzip

import (
	"errors"
	iofs "io/fs"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// errMockTypeAssertion fires if a test table feeds a mock.Called() return
// value of the wrong type — a bug in the test itself, not the code under
// test, so panicking here is deliberate rather than returning an error.
var errMockTypeAssertion = errors.New("mock: unexpected return type")

type fakeFileInfo struct {
	mock.Mock
}

func (m *fakeFileInfo) Name() string {
	return m.Called().String(0)
}

func (m *fakeFileInfo) Size() int64 {
	args := m.Called()

	size, ok := args.Get(0).(int64)
	if !ok {
		panic(errMockTypeAssertion)
	}

	return size
}

func (m *fakeFileInfo) Mode() iofs.FileMode {
	args := m.Called()

	mode, ok := args.Get(0).(iofs.FileMode)
	if !ok {
		panic(errMockTypeAssertion)
	}

	return mode
}

func (m *fakeFileInfo) ModTime() time.Time {
	args := m.Called()

	modTime, ok := args.Get(0).(time.Time)
	if !ok {
		panic(errMockTypeAssertion)
	}

	return modTime
}

func (m *fakeFileInfo) IsDir() bool {
	return m.Called().Bool(0)
}

func (m *fakeFileInfo) Sys() any {
	return m.Called().Get(0)
}

func newFakeFileInfo(tb testing.TB) *fakeFileInfo {
	tb.Helper()

	info := new(fakeFileInfo)
	info.Test(tb)

	tb.Cleanup(func() { info.AssertExpectations(tb) })

	return info
}

// fakeVolumeFile stands in for one physical ".7zNNN" volume file, since
// openReader only ever calls Stat/Close/Name on afero.File for the
// volumes it discovers.
type fakeVolumeFile struct {
	mock.Mock
}

func (m *fakeVolumeFile) Name() string {
	return m.Called().String(0)
}

func (m *fakeVolumeFile) Readdir(count int) ([]os.FileInfo, error) {
	args := m.Called(count)

	infos, ok := args.Get(0).([]os.FileInfo)
	if infos != nil && !ok {
		panic(errMockTypeAssertion)
	}

	return infos, args.Error(1)
}

func (m *fakeVolumeFile) Readdirnames(n int) ([]string, error) {
	args := m.Called(n)

	names, ok := args.Get(0).([]string)
	if names != nil && !ok {
		panic(errMockTypeAssertion)
	}

	return names, args.Error(1)
}

func (m *fakeVolumeFile) Stat() (os.FileInfo, error) {
	args := m.Called()

	info, ok := args.Get(0).(os.FileInfo)
	if info != nil && !ok {
		panic(errMockTypeAssertion)
	}

	return info, args.Error(1)
}

func (m *fakeVolumeFile) Sync() error {
	return m.Called().Error(0)
}

func (m *fakeVolumeFile) Truncate(size int64) error {
	return m.Called(size).Error(0)
}

func (m *fakeVolumeFile) WriteString(s string) (int, error) {
	args := m.Called(s)

	return args.Int(0), args.Error(1)
}

func (m *fakeVolumeFile) Close() error {
	return m.Called().Error(0)
}

func (m *fakeVolumeFile) Read(p []byte) (int, error) {
	args := m.Called(p)

	return args.Int(0), args.Error(1)
}

func (m *fakeVolumeFile) ReadAt(p []byte, off int64) (int, error) {
	args := m.Called(p, off)

	return args.Int(0), args.Error(1)
}

func (m *fakeVolumeFile) Seek(offset int64, whence int) (int64, error) {
	args := m.Called(offset, whence)

	n, ok := args.Get(0).(int64)
	if !ok {
		panic(errMockTypeAssertion)
	}

	return n, args.Error(1)
}

func (m *fakeVolumeFile) Write(p []byte) (int, error) {
	args := m.Called(p)

	return args.Int(0), args.Error(1)
}

func (m *fakeVolumeFile) WriteAt(p []byte, off int64) (int, error) {
	args := m.Called(p, off)

	return args.Int(0), args.Error(1)
}

func newFakeVolumeFile(tb testing.TB) *fakeVolumeFile {
	tb.Helper()

	f := new(fakeVolumeFile)
	f.Test(tb)

	tb.Cleanup(func() { f.AssertExpectations(tb) })

	return f
}

type fakeVolumeFs struct {
	mock.Mock
}

func (m *fakeVolumeFs) Create(name string) (afero.File, error) {
	args := m.Called(name)

	file, ok := args.Get(0).(afero.File)
	if file != nil && !ok {
		panic(errMockTypeAssertion)
	}

	return file, args.Error(1)
}

func (m *fakeVolumeFs) Mkdir(name string, perm os.FileMode) error {
	return m.Called(name, perm).Error(0)
}

func (m *fakeVolumeFs) MkdirAll(path string, perm os.FileMode) error {
	return m.Called(path, perm).Error(0)
}

func (m *fakeVolumeFs) Open(name string) (afero.File, error) {
	args := m.Called(name)

	file, ok := args.Get(0).(afero.File)
	if file != nil && !ok {
		panic(errMockTypeAssertion)
	}

	return file, args.Error(1)
}

func (m *fakeVolumeFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	args := m.Called(name, flag, perm)

	file, ok := args.Get(0).(afero.File)
	if file != nil && !ok {
		panic(errMockTypeAssertion)
	}

	return file, args.Error(1)
}

func (m *fakeVolumeFs) Remove(name string) error {
	return m.Called(name).Error(0)
}

func (m *fakeVolumeFs) RemoveAll(path string) error {
	return m.Called(path).Error(0)
}

func (m *fakeVolumeFs) Rename(oldname, newname string) error {
	return m.Called(oldname, newname).Error(0)
}

func (m *fakeVolumeFs) Stat(name string) (os.FileInfo, error) {
	args := m.Called(name)

	info, ok := args.Get(0).(os.FileInfo)
	if info != nil && !ok {
		panic(errMockTypeAssertion)
	}

	return info, args.Error(1)
}

func (m *fakeVolumeFs) Name() string {
	return m.Called().String(0)
}

func (m *fakeVolumeFs) Chmod(name string, mode os.FileMode) error {
	return m.Called(name, mode).Error(0)
}

func (m *fakeVolumeFs) Chown(name string, uid, gid int) error {
	return m.Called(name, uid, gid).Error(0)
}

func (m *fakeVolumeFs) Chtimes(name string, atime, mtime time.Time) error {
	return m.Called(name, atime, mtime).Error(0)
}

func newFakeVolumeFs(tb testing.TB) *fakeVolumeFs {
	tb.Helper()

	fs := new(fakeVolumeFs)
	fs.Test(tb)

	tb.Cleanup(func() { fs.AssertExpectations(tb) })

	return fs
}

var (
	_ os.FileInfo = new(fakeFileInfo)
	_ afero.File  = new(fakeVolumeFile)
	_ afero.Fs    = new(fakeVolumeFs)
)

// TestOpenReaderMultiVolume drives openReader's volume-discovery loop
// (filename.7z.001, .002, ... until Open fails with ErrNotExist) through
// an afero.Fs double, covering both the expected end-of-volumes signal
// and propagation of unexpected Open/Stat errors at each step.
//
//nolint:funlen
func TestOpenReaderMultiVolume(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		fs   func(tb testing.TB) afero.Fs
		err  error
	}{
		{
			name: "two volumes then not-exist stops the scan",
			fs: func(tb testing.TB) afero.Fs {
				tb.Helper()

				info := newFakeFileInfo(tb)
				info.On("Size").Return(int64(100)).Twice()

				one := newFakeVolumeFile(tb)
				one.On("Stat").Return(info, nil).Once()
				one.On("Close").Return(nil).Once()

				two := newFakeVolumeFile(tb)
				two.On("Stat").Return(info, nil).Once()
				two.On("Close").Return(nil).Once()

				fs := newFakeVolumeFs(tb)
				fs.On("Open", "filename.7z.001").Return(one, nil).Once()
				fs.On("Open", "filename.7z.002").Return(two, nil).Once()
				fs.On("Open", "filename.7z.003").Return(nil, iofs.ErrNotExist).Once()

				return fs
			},
		},
		{
			name: "first volume fails to open",
			fs: func(tb testing.TB) afero.Fs {
				tb.Helper()

				fs := newFakeVolumeFs(tb)
				fs.On("Open", "filename.7z.001").Return(nil, iofs.ErrPermission).Once()

				return fs
			},
			err: iofs.ErrPermission,
		},
		{
			name: "first volume fails to stat",
			fs: func(tb testing.TB) afero.Fs {
				tb.Helper()

				one := newFakeVolumeFile(tb)
				one.On("Stat").Return(nil, iofs.ErrPermission).Once()
				one.On("Close").Return(nil).Once()

				fs := newFakeVolumeFs(tb)
				fs.On("Open", "filename.7z.001").Return(one, nil).Once()

				return fs
			},
			err: iofs.ErrPermission,
		},
		{
			name: "second volume fails to open",
			fs: func(tb testing.TB) afero.Fs {
				tb.Helper()

				info := newFakeFileInfo(tb)
				info.On("Size").Return(int64(100)).Once()

				one := newFakeVolumeFile(tb)
				one.On("Stat").Return(info, nil).Once()
				one.On("Close").Return(nil).Once()

				fs := newFakeVolumeFs(tb)
				fs.On("Open", "filename.7z.001").Return(one, nil).Once()
				fs.On("Open", "filename.7z.002").Return(nil, iofs.ErrPermission).Once()

				return fs
			},
			err: iofs.ErrPermission,
		},
		{
			name: "second volume fails to stat",
			fs: func(tb testing.TB) afero.Fs {
				tb.Helper()

				info := newFakeFileInfo(tb)
				info.On("Size").Return(int64(100)).Once()

				one := newFakeVolumeFile(tb)
				one.On("Stat").Return(info, nil).Once()
				one.On("Close").Return(nil).Once()

				two := newFakeVolumeFile(tb)
				two.On("Stat").Return(nil, iofs.ErrPermission).Once()
				two.On("Close").Return(nil).Once()

				fs := newFakeVolumeFs(tb)
				fs.On("Open", "filename.7z.001").Return(one, nil).Once()
				fs.On("Open", "filename.7z.002").Return(two, nil).Once()

				return fs
			},
			err: iofs.ErrPermission,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			_, _, files, err := openReader(c.fs(t), "filename.7z.001")
			if c.err == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, c.err)

				return
			}

			defer func() {
				for _, f := range files {
					if err := f.Close(); err != nil {
						t.Fatal(err)
					}
				}
			}()
		})
	}
}
