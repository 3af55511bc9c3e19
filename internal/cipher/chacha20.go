package cipher

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"
)

// chacha20Cipher implements Cipher over the raw ChaCha20 stream cipher (no
// Poly1305 tag — per-block integrity here comes from the content layer's
// own mac64 prefix, not an AEAD tag). CipherBlockSize is reported as 64,
// ChaCha20's internal block size, so block_encode still validates
// length-is-a-multiple-of-block-size the way an AES family would.
type chacha20Cipher struct{}

const (
	chacha20KeySize   = chacha20.KeySize
	chacha20BlockSize = 64
)

func newChaCha20Cipher(key []byte) (Cipher, error) {
	if len(key) != chacha20KeySize {
		return nil, fmt.Errorf("%w: chacha20 wants %d bytes, got %d", ErrBadKeySize, chacha20KeySize, len(key))
	}
	return chacha20Cipher{}, nil
}

func (chacha20Cipher) KeySize() int         { return chacha20KeySize }
func (chacha20Cipher) EncodedKeySize() int  { return chacha20KeySize + 8 }
func (chacha20Cipher) CipherBlockSize() int { return chacha20BlockSize }

func (chacha20Cipher) NewRandomKey() (Key, error) {
	raw := make([]byte, chacha20KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return Key{}, fmt.Errorf("cipher: generating random key: %w", err)
	}
	return NewKey(raw), nil
}

func (chacha20Cipher) NewKeyFromPassword(pw, salt []byte, iterations, targetDurationMs int) (Key, int, error) {
	return deriveKeyFromPassword(pw, salt, iterations, targetDurationMs, chacha20KeySize)
}

func (c chacha20Cipher) ReadKey(blob []byte, wrappingKey Key, check bool) (Key, error) {
	return readWrappedKey(c, blob, wrappingKey, check)
}

func (c chacha20Cipher) WriteKey(key Key, wrappingKey Key) ([]byte, error) {
	return writeWrappedKey(c, key, wrappingKey)
}

func (chacha20Cipher) CompareKeys(a, b Key) bool {
	return a.Equal(b)
}

func (chacha20Cipher) Randomize(dst []byte) error {
	_, err := io.ReadFull(rand.Reader, dst)
	return err
}

func (chacha20Cipher) MAC64(key Key, data []byte, chain []byte) uint64 {
	return mac64(key.Bytes(), chain, data)
}
func (c chacha20Cipher) MAC32(key Key, data []byte, chain []byte) uint32 {
	return mac32(c.MAC64(key, data, chain))
}
func (c chacha20Cipher) MAC16(key Key, data []byte, chain []byte) uint16 {
	return mac16(c.MAC32(key, data, chain))
}

// chachaNonce builds ChaCha20's 12-byte nonce from the 64-bit IV, zero
// extended in the high bytes.
func chachaNonce(iv uint64) [chacha20.NonceSize]byte {
	var nonce [chacha20.NonceSize]byte
	for i := 0; i < 8; i++ {
		nonce[4+i] = byte(iv >> (56 - 8*i))
	}
	return nonce
}

func (chacha20Cipher) StreamEncode(key Key, iv uint64, buf []byte) {
	nonce := chachaNonce(iv)
	s, err := chacha20.NewUnauthenticatedCipher(key.Bytes(), nonce[:])
	if err != nil {
		panic(err) // key/nonce size already validated at construction
	}
	s.XORKeyStream(buf, buf)
}

func (c chacha20Cipher) StreamDecode(key Key, iv uint64, buf []byte) {
	c.StreamEncode(key, iv, buf)
}

func (c chacha20Cipher) BlockEncode(key Key, iv uint64, buf []byte) error {
	if len(buf)%chacha20BlockSize != 0 {
		return fmt.Errorf("cipher: block buffer length %d not a multiple of %d", len(buf), chacha20BlockSize)
	}
	c.StreamEncode(key, iv, buf)
	return nil
}

func (c chacha20Cipher) BlockDecode(key Key, iv uint64, buf []byte) error {
	return c.BlockEncode(key, iv, buf)
}
