// Package bcj2 implements the BCJ2 filter for x86 binaries: unlike the
// other BCJ variants it doesn't rewrite branch targets in place, instead
// splitting a program into four streams (the bulk of the instruction
// bytes, the raw CALL/JMP target addresses, and a range-coded bitstream
// saying which occurrences of 0xE8/0xE9/0x0F8x were actually converted
// during compression) that have to be merged back together on decode.
package bcj2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go7z/sevenzip/internal/util"
	"github.com/hashicorp/go-multierror"
)

// mergeReader drives the BCJ2 range decoder over the four component
// streams (main instruction bytes, call targets, jump targets, and the
// control bitstream) and reassembles the original byte stream into buf.
type mergeReader struct {
	main util.ReadCloser
	call io.ReadCloser
	jump io.ReadCloser

	control util.ReadCloser
	nrange  uint
	code    uint

	prob [256 + 2]uint

	previous byte
	written  uint32

	buf *bytes.Buffer
}

// The range coder's probability model: 11-bit fixed-point probabilities
// updated by a 5-bit shift, and the renormalization threshold below
// which another control byte must be pulled in. These constants and the
// decode arithmetic in decode/renormalize below are 7-Zip's Bcj2Dec.c range
// coder verbatim; any deviation here silently corrupts every converted
// CALL/JMP in the output.
const (
	numMoveBits               = 5
	numbitModelTotalBits      = 11
	bitModelTotal        uint = 1 << numbitModelTotalBits
	numTopBits                = 24
	topValue             uint = 1 << numTopBits
)

var errNeedFourReaders = errors.New("bcj2: need exactly four readers")

func isJcc(b0, b1 byte) bool {
	return b0 == 0x0f && (b1&0xf0) == 0x80
}

func isJ(b0, b1 byte) bool {
	return (b1&0xfe) == 0xe8 || isJcc(b0, b1)
}

func probIndex(b0, b1 byte) int {
	switch b1 {
	case 0xe8:
		return int(b0)
	case 0xe9:
		return 256
	default:
		return 257
	}
}

// NewReader returns a new BCJ2 io.ReadCloser. readers must hold the four
// component streams in order: main, call, jump, control.
func NewReader(_ []byte, _ uint64, readers []io.ReadCloser) (io.ReadCloser, error) {
	if len(readers) != 4 {
		return nil, errNeedFourReaders
	}

	r := &mergeReader{
		main:    util.ByteReadCloser(readers[0]),
		call:    readers[1],
		jump:    readers[2],
		control: util.ByteReadCloser(readers[3]),
		nrange:  0xffffffff,
		buf:     new(bytes.Buffer),
	}
	r.buf.Grow(1 << 16)

	b := make([]byte, 5)
	if _, err := io.ReadFull(r.control, b); err != nil {
		if !errors.Is(err, io.EOF) {
			err = fmt.Errorf("bcj2: error reading initial state: %w", err)
		}

		return nil, err
	}

	for _, x := range b {
		r.code = (r.code << 8) | uint(x)
	}

	for i := range r.prob {
		r.prob[i] = bitModelTotal >> 1
	}

	return r, nil
}

func (r *mergeReader) Close() error {
	if r.main == nil || r.call == nil || r.jump == nil || r.control == nil {
		return fmt.Errorf("bcj2: already closed")
	}

	//nolint:lll
	if err := multierror.Append(r.main.Close(), r.call.Close(), r.jump.Close(), r.control.Close()).ErrorOrNil(); err != nil {
		return fmt.Errorf("bcj2: error closing: %w", err)
	}

	r.main, r.call, r.jump, r.control = nil, nil, nil, nil

	return nil
}

func (r *mergeReader) Read(p []byte) (int, error) {
	if r.main == nil || r.call == nil || r.jump == nil || r.control == nil {
		return 0, fmt.Errorf("bcj2: already closed")
	}

	if err := r.fill(); err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}

	n, err := r.buf.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("bcj2: error reading: %w", err)
	}

	return n, err
}

// renormalize pulls in another control byte once nrange has shrunk below
// topValue, the usual range coder renormalization step.
func (r *mergeReader) renormalize() error {
	if r.nrange < topValue {
		b, err := r.control.ReadByte()
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("bcj2: error reading byte: %w", err)
		}

		r.code = (r.code << 8) | uint(b)
		r.nrange <<= 8
	}

	return nil
}

// decode reports whether the bit modeled by prob[i] decoded to 1 (the
// preceding CALL/JMP opcode was converted at compress time), updating
// the probability estimate for index i either way.
func (r *mergeReader) decode(i int) (bool, error) {
	newBound := (r.nrange >> numbitModelTotalBits) * r.prob[i]

	if r.code < newBound {
		r.nrange = newBound
		r.prob[i] += (bitModelTotal - r.prob[i]) >> numMoveBits

		if err := r.renormalize(); err != nil {
			return false, err
		}

		return false, nil
	}

	r.nrange -= newBound
	r.code -= newBound
	r.prob[i] -= r.prob[i] >> numMoveBits

	if err := r.renormalize(); err != nil {
		return false, err
	}

	return true, nil
}

// fill copies main-stream bytes into buf until it spots a byte pair that
// could be a converted CALL/JMP/Jcc, then consults the range decoder to
// see whether this particular occurrence actually was one, substituting
// the absolute target address pulled from the call/jump stream if so.
//
//nolint:cyclop,funlen
func (r *mergeReader) fill() error {
	var (
		b   byte
		err error
	)

	for {
		if b, err = r.main.ReadByte(); err != nil {
			if !errors.Is(err, io.EOF) {
				err = fmt.Errorf("bcj2: error reading byte: %w", err)
			}

			return err
		}

		r.written++
		_ = r.buf.WriteByte(b)

		if isJ(r.previous, b) {
			break
		}

		r.previous = b

		if r.buf.Len() == r.buf.Cap() {
			return nil
		}
	}

	converted, err := r.decode(probIndex(r.previous, b))
	if err != nil {
		return err
	}

	//nolint:nestif
	if converted {
		var src io.Reader
		if b == 0xe8 {
			src = r.call
		} else {
			src = r.jump
		}

		var dest uint32
		if err = binary.Read(src, binary.BigEndian, &dest); err != nil {
			if !errors.Is(err, io.EOF) {
				err = fmt.Errorf("bcj2: error reading uint32: %w", err)
			}

			return err
		}

		dest -= r.written + 4
		_ = binary.Write(r.buf, binary.LittleEndian, dest)

		r.previous = byte(dest >> 24)
		r.written += 4
	} else {
		r.previous = b
	}

	return nil
}
