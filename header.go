package sevenzip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/bodgit/windows"
	"golang.org/x/text/encoding/unicode"
)

// headerReader is the minimal shape the header grammar needs: single-byte
// reads for property IDs and numbers, plus bulk reads for names, digests
// and raw property blobs. *bufio.Reader satisfies it, as does anything
// util.ByteReadCloser wraps.
type headerReader interface {
	io.Reader
	io.ByteReader
}

// Property IDs used by the metadata block grammar (7-Zip's own naming,
// kept verbatim since they're referenced throughout the format docs).
const (
	idEnd = iota
	idHeader
	idArchiveProperties
	idAdditionalStreamsInfo
	idMainStreamsInfo
	idFilesInfo
	idPackInfo
	idUnpackInfo
	idSubStreamsInfo
	idSize
	idCRC
	idFolder
	idCodersUnpackSize
	idNumUnpackStream
	idEmptyStream
	idEmptyFile
	idAnti
	idName
	idCTime
	idATime
	idMTime
	idWinAttributes
	idComment
	idEncodedHeader
	idStartPos
	idDummy
)

var (
	errUnexpectedID     = errors.New("sevenzip: unexpected property id")
	errUnsupportedCodec = errors.New("sevenzip: unsupported codec")
	errTruncated        = errors.New("sevenzip: truncated archive")
	errCorruptHeader    = errors.New("sevenzip: corrupt header")
	errExternal         = errors.New("sevenzip: external streams are not supported")
	errTooManyOutputs   = errors.New("sevenzip: coder declares more than one output stream")
	errNumberRange      = errors.New("sevenzip: number exceeds supported range")
)

// readByte reads a single byte, mapping io.EOF into the truncated-archive
// sentinel so callers never have to special-case EOF mid-integer.
func readByte(r io.ByteReader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, errTruncated
		}

		return 0, fmt.Errorf("sevenzip: error reading byte: %w", err)
	}

	return b, nil
}

// readNumber decodes a 7z variable-length unsigned integer per §3 of the
// format: the first byte's leading set-bit run selects how many extra
// little-endian bytes follow and how many of the first byte's low bits
// contribute to the high end of the value. Values above 2^53-1 are never
// produced by a valid archive in scope; readNumber rejects them.
func readNumber(r io.ByteReader) (uint64, error) {
	first, err := readByte(r)
	if err != nil {
		return 0, err
	}

	var (
		value uint64
		mask  byte = 0x80
	)

	for i := uint(0); i < 8; i++ {
		if first&mask == 0 {
			value |= uint64(first&(mask-1)) << (8 * i)

			if value > (1<<53)-1 {
				return 0, fmt.Errorf("%w: %d", errNumberRange, value)
			}

			return value, nil
		}

		b, err := readByte(r)
		if err != nil {
			return 0, err
		}

		value |= uint64(b) << (8 * i)
		mask >>= 1
	}

	if value > (1<<53)-1 {
		return 0, fmt.Errorf("%w: %d", errNumberRange, value)
	}

	return value, nil
}

func readNumberInt(r io.ByteReader) (int, error) {
	n, err := readNumber(r)
	if err != nil {
		return 0, err
	}

	return int(n), nil //nolint:gosec
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, errTruncated
		}

		return 0, fmt.Errorf("sevenzip: error reading uint32: %w", err)
	}

	return v, nil
}

func readUint64(r io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, errTruncated
		}

		return 0, fmt.Errorf("sevenzip: error reading uint64: %w", err)
	}

	return v, nil
}

// readBoolVector reads count booleans packed eight to a byte, MSB first.
func readBoolVector(r io.ByteReader, count int) ([]bool, error) {
	v := make([]bool, count)

	var (
		b    byte
		mask byte
		err  error
	)

	for i := range v {
		if mask == 0 {
			if b, err = readByte(r); err != nil {
				return nil, err
			}

			mask = 0x80
		}

		v[i] = b&mask != 0
		mask >>= 1
	}

	return v, nil
}

// readDefinedVector reads the "all defined" sentinel byte; if zero, a
// dense bitvector of count flags follows.
func readDefinedVector(r io.ByteReader, count int) ([]bool, error) {
	allDefined, err := readByte(r)
	if err != nil {
		return nil, err
	}

	if allDefined != 0 {
		v := make([]bool, count)
		for i := range v {
			v[i] = true
		}

		return v, nil
	}

	return readBoolVector(r, count)
}

func readNumberArray(r io.ByteReader, count int) ([]uint64, error) {
	v := make([]uint64, count)

	for i := range v {
		n, err := readNumber(r)
		if err != nil {
			return nil, err
		}

		v[i] = n
	}

	return v, nil
}

func readDigests(r headerReader, count int) ([]uint32, []bool, error) {
	defined, err := readDefinedVector(r, count)
	if err != nil {
		return nil, nil, err
	}

	digest := make([]uint32, count)

	for i := 0; i < count; i++ {
		if !defined[i] {
			continue
		}

		if digest[i], err = readUint32(r); err != nil {
			return nil, nil, err
		}
	}

	return digest, defined, nil
}

func readPackInfo(r headerReader) (*packInfo, error) {
	pi := new(packInfo)

	var err error

	if pi.position, err = readNumber(r); err != nil {
		return nil, err
	}

	streams, err := readNumberInt(r)
	if err != nil {
		return nil, err
	}

	pi.streams = uint64(streams) //nolint:gosec

	for {
		id, err := readByte(r)
		if err != nil {
			return nil, err
		}

		switch id {
		case idSize:
			if pi.size, err = readNumberArray(r, streams); err != nil {
				return nil, err
			}
		case idCRC:
			digest, _, err := readDigests(r, streams)
			if err != nil {
				return nil, err
			}

			pi.digest = digest
		case idEnd:
			return pi, nil
		default:
			return nil, errUnexpectedID
		}
	}
}

//nolint:cyclop
func readFolder(r headerReader) (*folder, error) {
	f := new(folder)

	numCoders, err := readNumberInt(r)
	if err != nil {
		return nil, err
	}

	f.coder = make([]*coder, numCoders)

	for i := range f.coder {
		c := new(coder)

		attributes, err := readByte(r)
		if err != nil {
			return nil, err
		}

		idSize := attributes & 0x0f
		isComplex := attributes&0x10 != 0
		hasAttributes := attributes&0x20 != 0

		c.id = make([]byte, idSize)
		if _, err := io.ReadFull(r, c.id); err != nil {
			return nil, errTruncated
		}

		c.in, c.out = 1, 1

		if isComplex {
			in, err := readNumber(r)
			if err != nil {
				return nil, err
			}

			out, err := readNumber(r)
			if err != nil {
				return nil, err
			}

			c.in, c.out = in, out
		}

		if c.out != 1 {
			return nil, errTooManyOutputs
		}

		if hasAttributes {
			size, err := readNumberInt(r)
			if err != nil {
				return nil, err
			}

			c.properties = make([]byte, size)
			if _, err := io.ReadFull(r, c.properties); err != nil {
				return nil, errTruncated
			}
		}

		f.coder[i] = c
		f.in += c.in
		f.out += c.out
	}

	f.bindPair = make([]*bindPair, f.out-1)

	for i := range f.bindPair {
		bp := new(bindPair)

		if bp.in, err = readNumber(r); err != nil {
			return nil, err
		}

		if bp.out, err = readNumber(r); err != nil {
			return nil, err
		}

		f.bindPair[i] = bp
	}

	f.packedStreams = f.in - uint64(len(f.bindPair)) //nolint:gosec

	if f.packedStreams == 1 {
		for i := uint64(0); i < f.in; i++ {
			if f.findInBindPair(i) == nil {
				f.packed = []uint64{i}

				break
			}
		}
	} else {
		packed, err := readNumberArray(r, int(f.packedStreams)) //nolint:gosec
		if err != nil {
			return nil, err
		}

		f.packed = packed
	}

	return f, nil
}

func readUnpackInfo(r headerReader) (*unpackInfo, error) {
	if id, err := readByte(r); err != nil {
		return nil, err
	} else if id != idFolder {
		return nil, errUnexpectedID
	}

	numFolders, err := readNumberInt(r)
	if err != nil {
		return nil, err
	}

	external, err := readByte(r)
	if err != nil {
		return nil, err
	}

	if external != 0 {
		return nil, errExternal
	}

	ui := &unpackInfo{folder: make([]*folder, numFolders)}

	for i := range ui.folder {
		if ui.folder[i], err = readFolder(r); err != nil {
			return nil, err
		}
	}

	if id, err := readByte(r); err != nil {
		return nil, err
	} else if id != idCodersUnpackSize {
		return nil, errUnexpectedID
	}

	for _, f := range ui.folder {
		total := uint64(0)
		for _, c := range f.coder {
			total += c.out
		}

		if f.size, err = readNumberArray(r, int(total)); err != nil { //nolint:gosec
			return nil, err
		}
	}

	id, err := readByte(r)
	if err != nil {
		return nil, err
	}

	if id == idCRC {
		digest, defined, err := readDigests(r, numFolders)
		if err != nil {
			return nil, err
		}

		ui.digest = digest
		ui.digestDefined = defined

		if id, err = readByte(r); err != nil {
			return nil, err
		}
	}

	if id != idEnd {
		return nil, errUnexpectedID
	}

	return ui, nil
}

//nolint:cyclop,funlen
func readSubStreamsInfo(r headerReader, ui *unpackInfo) (*subStreamsInfo, error) {
	ssi := &subStreamsInfo{streams: make([]uint64, len(ui.folder))}

	for i := range ssi.streams {
		ssi.streams[i] = 1
	}

	id, err := readByte(r)
	if err != nil {
		return nil, err
	}

	if id == idNumUnpackStream {
		if ssi.streams, err = readNumberArray(r, len(ui.folder)); err != nil {
			return nil, err
		}

		if id, err = readByte(r); err != nil {
			return nil, err
		}
	}

	for i, f := range ui.folder {
		n := ssi.streams[i]
		if n == 0 {
			continue
		}

		var sum uint64

		if id == idSize {
			for j := uint64(1); j < n; j++ {
				size, err := readNumber(r)
				if err != nil {
					return nil, err
				}

				sum += size
				ssi.size = append(ssi.size, size)
			}
		}

		ssi.size = append(ssi.size, f.unpackSize()-sum)
	}

	if id == idSize {
		if id, err = readByte(r); err != nil {
			return nil, err
		}
	}

	numDigests := 0

	for i := range ui.folder {
		if ssi.streams[i] != 1 || !ui.folderDigestDefined(i) {
			numDigests += int(ssi.streams[i]) //nolint:gosec
		}
	}

	if id == idCRC {
		digest, defined, err := readDigests(r, numDigests)
		if err != nil {
			return nil, err
		}

		ssi.digest = make([]uint32, 0, len(ssi.streams))
		j := 0

		for i := range ui.folder {
			if ssi.streams[i] == 1 && ui.folderDigestDefined(i) {
				ssi.digest = append(ssi.digest, ui.digest[i])

				continue
			}

			for k := uint64(0); k < ssi.streams[i]; k++ {
				if defined[j] {
					ssi.digest = append(ssi.digest, digest[j])
				} else {
					ssi.digest = append(ssi.digest, 0)
				}

				j++
			}
		}

		if id, err = readByte(r); err != nil {
			return nil, err
		}
	}

	if id != idEnd {
		return nil, errUnexpectedID
	}

	return ssi, nil
}

func readStreamsInfo(r headerReader) (*streamsInfo, error) {
	si := new(streamsInfo)

	for {
		id, err := readByte(r)
		if err != nil {
			return nil, err
		}

		switch id {
		case idPackInfo:
			if si.packInfo, err = readPackInfo(r); err != nil {
				return nil, err
			}
		case idUnpackInfo:
			if si.unpackInfo, err = readUnpackInfo(r); err != nil {
				return nil, err
			}
		case idSubStreamsInfo:
			if si.unpackInfo == nil {
				return nil, errUnexpectedID
			}

			if si.subStreamsInfo, err = readSubStreamsInfo(r, si.unpackInfo); err != nil {
				return nil, err
			}
		case idEnd:
			if si.packInfo == nil || si.unpackInfo == nil {
				return nil, errUnexpectedID
			}

			return si, nil
		default:
			return nil, errUnexpectedID
		}
	}
}

// readName reads a null-terminated sequence of UTF-16LE code units and
// decodes it to UTF-8 via golang.org/x/text's UTF-16 decoder rather than
// hand-rolling surrogate-pair handling.
func readName(r headerReader) (string, error) {
	var raw []byte

	for {
		var u [2]byte
		if _, err := io.ReadFull(r, u[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return "", errTruncated
			}

			return "", fmt.Errorf("sevenzip: error reading name: %w", err)
		}

		if u[0] == 0 && u[1] == 0 {
			break
		}

		raw = append(raw, u[0], u[1])
	}

	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", fmt.Errorf("%w: ill-formed UTF-16 filename", errCorruptHeader)
	}

	return string(decoded), nil
}

// fileTimeToTime converts a raw Windows FILETIME (100ns ticks since
// 1601-01-01 UTC) into a time.Time, via bodgit/windows's FILETIME type.
func fileTimeToTime(raw uint64) time.Time {
	return windows.NTFileTime(raw).Time()
}

//nolint:cyclop,funlen,gocognit
func readFilesInfo(r headerReader) (*filesInfo, error) {
	numFiles, err := readNumberInt(r)
	if err != nil {
		return nil, err
	}

	fi := &filesInfo{file: make([]FileHeader, numFiles)}

	var (
		emptyStream  []bool
		numEmpty     int
		emptyFile    []bool
		antiFile     []bool
		fileCounter  int
	)

	for {
		id, err := readByte(r)
		if err != nil {
			return nil, err
		}

		if id == idEnd {
			break
		}

		size, err := readNumber(r)
		if err != nil {
			return nil, err
		}

		switch id {
		case idEmptyStream:
			if emptyStream, err = readBoolVector(r, numFiles); err != nil {
				return nil, err
			}

			numEmpty = 0

			for _, v := range emptyStream {
				if v {
					numEmpty++
				}
			}

			for i, v := range emptyStream {
				fi.file[i].isEmptyStream = v
			}
		case idEmptyFile:
			if emptyFile, err = readBoolVector(r, numEmpty); err != nil {
				return nil, err
			}

			fileCounter = 0

			for i := range fi.file {
				if !fi.file[i].isEmptyStream {
					continue
				}

				fi.file[i].isEmptyFile = emptyFile[fileCounter]
				fileCounter++
			}
		case idAnti:
			if antiFile, err = readBoolVector(r, numEmpty); err != nil {
				return nil, err
			}

			fileCounter = 0

			for i := range fi.file {
				if !fi.file[i].isEmptyStream {
					continue
				}

				fi.file[i].isAntiFile = antiFile[fileCounter]
				fileCounter++
			}
		case idName:
			external, err := readByte(r)
			if err != nil {
				return nil, err
			}

			if external != 0 {
				return nil, errExternal
			}

			for i := range fi.file {
				name, err := readName(r)
				if err != nil {
					return nil, err
				}

				fi.file[i].Name = name
			}
		case idCTime, idATime, idMTime:
			defined, err := readDefinedVector(r, numFiles)
			if err != nil {
				return nil, err
			}

			external, err := readByte(r)
			if err != nil {
				return nil, err
			}

			if external != 0 {
				return nil, errExternal
			}

			for i := range fi.file {
				if !defined[i] {
					continue
				}

				raw, err := readUint64(r)
				if err != nil {
					return nil, err
				}

				t := fileTimeToTime(raw)

				switch id {
				case idCTime:
					fi.file[i].Created = t
				case idATime:
					fi.file[i].Accessed = t
				case idMTime:
					fi.file[i].Modified = t
				}
			}
		case idWinAttributes:
			defined, err := readDefinedVector(r, numFiles)
			if err != nil {
				return nil, err
			}

			external, err := readByte(r)
			if err != nil {
				return nil, err
			}

			if external != 0 {
				return nil, errExternal
			}

			for i := range fi.file {
				if !defined[i] {
					continue
				}

				attr, err := readUint32(r)
				if err != nil {
					return nil, err
				}

				fi.file[i].Attributes = attr
			}
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil { //nolint:gosec
				return nil, errTruncated
			}
		}
	}

	return fi, nil
}

func readHeader(r headerReader) (*header, error) {
	h := new(header)

	for {
		id, err := readByte(r)
		if err != nil {
			return nil, err
		}

		switch id {
		case idArchiveProperties:
			if err := skipArchiveProperties(r); err != nil {
				return nil, err
			}
		case idAdditionalStreamsInfo:
			if _, err := readStreamsInfo(r); err != nil {
				return nil, err
			}
		case idMainStreamsInfo:
			if h.streamsInfo, err = readStreamsInfo(r); err != nil {
				return nil, err
			}
		case idFilesInfo:
			if h.filesInfo, err = readFilesInfo(r); err != nil {
				return nil, err
			}
		case idEnd:
			return h, nil
		default:
			return nil, errUnexpectedID
		}
	}
}

func skipArchiveProperties(r headerReader) error {
	for {
		id, err := readByte(r)
		if err != nil {
			return err
		}

		if id == idEnd {
			return nil
		}

		size, err := readNumber(r)
		if err != nil {
			return err
		}

		if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil { //nolint:gosec
			return errTruncated
		}
	}
}

// readEncodedHeader parses the decompressed output of a kEncodedHeader
// folder: it must begin with the kHeader tag, and the rest is read with
// the same grammar as an unencoded header.
func readEncodedHeader(r headerReader) (*header, error) {
	id, err := readByte(r)
	if err != nil {
		return nil, err
	}

	if id != idHeader {
		return nil, fmt.Errorf("%w: decoded header did not start with kHeader", errCorruptHeader)
	}

	return readHeader(r)
}
