package aes7z

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// keyCacheEntry identifies a derived key by the three inputs that
// determine it. salt is hex-encoded because []byte isn't a valid map key.
type keyCacheEntry struct {
	password string
	cycles   int
	salt     string
}

const keyCacheSize = 10

// Key derivation runs up to 2^62 rounds of SHA-256 over the password; the
// cache means extracting many files from the same encrypted archive only
// pays that cost once per distinct password.
//
//nolint:gochecknoglobals
var keyCache = sync.OnceValues(func() (*lru.Cache[keyCacheEntry, []byte], error) {
	return lru.New[keyCacheEntry, []byte](keyCacheSize)
})

func deriveKey(password string, cycles int, salt []byte) ([]byte, error) {
	cache, err := keyCache()
	if err != nil {
		return nil, fmt.Errorf("aes7z: error creating key cache: %w", err)
	}

	entry := keyCacheEntry{
		password: password,
		cycles:   cycles,
		salt:     hex.EncodeToString(salt),
	}

	if key, ok := cache.Get(entry); ok {
		return key, nil
	}

	key, err := computeKey(password, cycles, salt)
	if err != nil {
		return nil, err
	}

	_ = cache.Add(entry, key)

	return key, nil
}

// computeKey implements 7-Zip's AES key-stretching scheme on the password
// encoded as UTF-16LE and prefixed with the salt. When cycles == 0x3f (a
// 7-Zip-specific shortcut) that salted password is used directly as the
// key, truncated or zero-padded to 32 bytes, with no hashing. Otherwise
// it is fed 2^cycles times into a single SHA-256 digest, each round
// followed by a little-endian round counter.
func computeKey(password string, cycles int, salt []byte) ([]byte, error) {
	seed := bytes.NewBuffer(salt)

	encoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	if _, err := transform.NewWriter(seed, encoder).Write([]byte(password)); err != nil {
		return nil, fmt.Errorf("aes7z: error encoding password: %w", err)
	}

	key := make([]byte, sha256.Size)

	if cycles == 0x3f {
		copy(key, seed.Bytes())

		return key, nil
	}

	h := sha256.New()

	for round := range uint64(1 << cycles) {
		_, _ = h.Write(seed.Bytes())
		_ = binary.Write(h, binary.LittleEndian, round)
	}

	copy(key, h.Sum(nil))

	return key, nil
}
