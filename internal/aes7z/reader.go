// Package aes7z implements the 7-zip AES decryption.
package aes7z

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"

	"github.com/go7z/sevenzip/internal/util"
)

var (
	errNoPasswordSet     = errors.New("aes7z: no password set")
	errUnsupportedMethod = errors.New("aes7z: unsupported compression method")
)

// aesReader decrypts AES-256-CBC a block at a time, buffering the
// decrypted plaintext so Read can satisfy requests smaller than one AES
// block. Password must be called before the first Read: the folder coder
// graph constructs every coder before any of them run, so the cipher
// can't be set up until the caller (folder.go's coderReader) supplies the
// archive's password afterwards.
type aesReader struct {
	in       io.ReadCloser
	salt, iv []byte
	cycles   int
	cbc      cipher.BlockMode
	closed   bool
	plain    bytes.Buffer
}

func (a *aesReader) Close() error {
	if a.closed {
		return fmt.Errorf("aes7z: already closed")
	}

	a.closed = true

	if err := a.in.Close(); err != nil {
		return fmt.Errorf("aes7z: error closing: %w", err)
	}

	return nil
}

func (a *aesReader) Password(password string) error {
	key, err := deriveKey(password, a.cycles, a.salt)
	if err != nil {
		return err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("aes7z: error creating cipher: %w", err)
	}

	a.cbc = cipher.NewCBCDecrypter(block, a.iv)

	return nil
}

func (a *aesReader) Read(p []byte) (int, error) {
	if a.closed {
		return 0, fmt.Errorf("aes7z: already closed")
	}

	if a.cbc == nil {
		return 0, errNoPasswordSet
	}

	var block [aes.BlockSize]byte

	for a.plain.Len() < len(p) {
		if _, err := io.ReadFull(a.in, block[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return 0, fmt.Errorf("aes7z: error reading block: %w", err)
		}

		a.cbc.CryptBlocks(block[:], block[:])
		a.plain.Write(block[:])
	}

	n, err := a.plain.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("aes7z: error reading: %w", err)
	}

	return n, err
}

// NewReader returns a new AES-256-CBC io.ReadCloser. Its Password method
// must be called, successfully, before Read: see [aesReader].
//
// The property blob packs the cycle count and salt/IV lengths into its
// first two bytes (high two bits of byte 0 flag whether each of salt and
// IV is present at all), followed by the salt and then the IV; the IV is
// zero-padded out to a full AES block when the reader is built.
func NewReader(p []byte, _ uint64, readers []io.ReadCloser) (io.ReadCloser, error) {
	if err := util.RequireReaders("aes7z", readers, 1); err != nil {
		return nil, err
	}

	if len(p) < 2 {
		return nil, fmt.Errorf("aes7z: not enough properties")
	}

	if p[0]&0xc0 == 0 {
		return nil, errUnsupportedMethod
	}

	saltLen := p[0]>>7&1 + p[1]>>4
	ivLen := p[0]>>6&1 + p[1]&0x0f

	if len(p) != int(2+saltLen+ivLen) {
		return nil, fmt.Errorf("aes7z: not enough properties")
	}

	a := &aesReader{
		in:     readers[0],
		cycles: int(p[0] & 0x3f),
		salt:   p[2 : 2+saltLen],
		iv:     make([]byte, aes.BlockSize),
	}

	copy(a.iv, p[2+saltLen:])

	return a, nil
}
