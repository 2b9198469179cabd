package sevenzip

import "context"

// defaultMemoryThreshold is the number of bytes of a staged stream input
// (see [OpenReaderFromStream]) kept in memory before the remainder spills
// to a temporary file, matching the legacy default documented in the
// external interface this package replaces.
const defaultMemoryThreshold = 100 << 20 // 100 MiB

type options struct {
	password        string
	memoryThreshold int64
	ctx             context.Context //nolint:containedctx
}

func newOptions() *options {
	return &options{
		memoryThreshold: defaultMemoryThreshold,
		ctx:             context.Background(),
	}
}

// Option configures a [Reader] or [ReadCloser] at construction time. It
// replaces the legacy pattern of a process-wide password setter (see the
// REDESIGN FLAGS this package follows): every knob lives on the specific
// archive being opened, never in a package-level variable.
type Option func(*options)

// WithPassword sets the password used to derive the AES-256 key for
// encrypted folders. It has no effect on archives that contain no AES7z
// coder.
func WithPassword(password string) Option {
	return func(o *options) {
		o.password = password
	}
}

// WithMemoryThreshold sets how many bytes of a stream passed to
// [OpenReaderFromStream] are buffered in memory before the remainder is
// spilled to a temporary file. A non-positive value stages the entire
// stream in memory.
func WithMemoryThreshold(bytes int64) Option {
	return func(o *options) {
		o.memoryThreshold = bytes
	}
}

// WithContext sets the context used to cancel in-flight folder
// decompression. Cancellation is checked at folder-decompression
// boundaries; it does not interrupt a codec already mid-read.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

func applyOptions(opts ...Option) *options {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	return o
}
