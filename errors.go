package sevenzip

import "errors"

// Code classifies an error returned by this package into the small,
// stable set of failure modes callers are expected to switch on, rather
// than matching against a specific sentinel or wrapped string.
type Code int

const (
	// CodeUnknown covers errors that don't map onto a defined Code, such
	// as I/O errors from the caller's own io.ReaderAt.
	CodeUnknown Code = iota
	CodeInvalidSignature
	CodeCRCMismatch
	CodeUnsupportedCodec
	CodeUnsupportedVersion
	CodeUnsupportedFeature
	CodeTruncatedArchive
	CodeCorruptHeader
	CodeCorruptArchive
	CodeEncryptedArchive
	CodeDecompressionFailed
)

func (c Code) String() string {
	switch c {
	case CodeInvalidSignature:
		return "INVALID_SIGNATURE"
	case CodeCRCMismatch:
		return "CRC_MISMATCH"
	case CodeUnsupportedCodec:
		return "UNSUPPORTED_CODEC"
	case CodeUnsupportedVersion:
		return "UNSUPPORTED_VERSION"
	case CodeUnsupportedFeature:
		return "UNSUPPORTED_FEATURE"
	case CodeTruncatedArchive:
		return "TRUNCATED_ARCHIVE"
	case CodeCorruptHeader:
		return "CORRUPT_HEADER"
	case CodeCorruptArchive:
		return "CORRUPT_ARCHIVE"
	case CodeEncryptedArchive:
		return "ENCRYPTED_ARCHIVE"
	case CodeDecompressionFailed:
		return "DECOMPRESSION_FAILED"
	default:
		return "UNKNOWN"
	}
}

// CodeFor classifies err into a Code by walking its error chain against
// the package's sentinel errors. It never matches I/O errors from the
// caller's own reader, since those aren't this package's to classify.
//
//nolint:cyclop
func CodeFor(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, errFormat):
		return CodeInvalidSignature
	case errors.Is(err, errChecksum), errors.Is(err, ErrCRCMismatch):
		return CodeCRCMismatch
	case errors.Is(err, errAlgorithm), errors.Is(err, errUnsupportedCodec):
		return CodeUnsupportedCodec
	case errors.Is(err, errUnsupportedVersion):
		return CodeUnsupportedVersion
	case errors.Is(err, errExternal), errors.Is(err, errUnsupportedFeature):
		return CodeUnsupportedFeature
	case errors.Is(err, errTruncated), errors.Is(err, errTooMuch):
		return CodeTruncatedArchive
	case errors.Is(err, errCorruptHeader), errors.Is(err, errUnexpectedID),
		errors.Is(err, errNumberRange), errors.Is(err, errTooManyOutputs),
		errors.Is(err, errOneHeaderStream), errors.Is(err, errMultipleOutputStreams),
		errors.Is(err, errNoBoundStream), errors.Is(err, errNoUnboundStream):
		return CodeCorruptHeader
	case errors.Is(err, errCorruptArchive):
		return CodeCorruptArchive
	default:
		var re *ReadError
		if errors.As(err, &re) && re.Encrypted {
			return CodeEncryptedArchive
		}

		if errors.Is(err, errPPMdUnsupported) {
			return CodeDecompressionFailed
		}

		return CodeUnknown
	}
}

var (
	// ErrCRCMismatch is returned by a [File]'s content reader when the
	// running CRC32 of the decompressed bytes disagrees with the value
	// declared in the archive's header, once the full stream has been
	// consumed. It is never returned before the stream's last byte has
	// been read and checked.
	ErrCRCMismatch = errors.New("sevenzip: CRC mismatch")

	errUnsupportedVersion = errors.New("sevenzip: unsupported archive version")
	errUnsupportedFeature = errors.New("sevenzip: unsupported feature")
	errCorruptArchive     = errors.New("sevenzip: corrupt archive")
)
