package cipher

import (
	"crypto/subtle"
	"fmt"
)

// writeWrappedKey seals key under wrappingKey: stream_encode the raw key
// bytes with IV 0 (wrapping keys are single-use, one per volume, so a fixed
// IV is safe), then append an 8-byte mac64 checksum of the plaintext key so
// ReadKey can detect a wrong password or corrupted blob.
func writeWrappedKey(c Cipher, key Key, wrappingKey Key) ([]byte, error) {
	if key.Len() != c.KeySize() {
		return nil, fmt.Errorf("%w: wrapping key of size %d, want %d", ErrBadKeySize, key.Len(), c.KeySize())
	}
	ciphertext := make([]byte, key.Len())
	copy(ciphertext, key.Bytes())
	c.StreamEncode(wrappingKey, 0, ciphertext)

	checksum := c.MAC64(wrappingKey, key.Bytes(), nil)
	blob := make([]byte, 0, c.EncodedKeySize())
	blob = append(blob, ciphertext...)
	blob = appendUint64(blob, checksum)
	return blob, nil
}

// readWrappedKey is the inverse of writeWrappedKey.
func readWrappedKey(c Cipher, blob []byte, wrappingKey Key, check bool) (Key, error) {
	if len(blob) != c.EncodedKeySize() {
		return Key{}, fmt.Errorf("%w: key blob is %d bytes, want %d", ErrShortCiphertext, len(blob), c.EncodedKeySize())
	}
	ciphertext := blob[:c.KeySize()]
	wantChecksum := blob[c.KeySize():]

	plaintext := make([]byte, len(ciphertext))
	copy(plaintext, ciphertext)
	c.StreamDecode(wrappingKey, 0, plaintext)

	if check {
		got := c.MAC64(wrappingKey, plaintext, nil)
		gotBytes := appendUint64(nil, got)
		if subtle.ConstantTimeCompare(gotBytes, wantChecksum) != 1 {
			return Key{}, ErrAuthFailed
		}
	}
	return NewKey(plaintext), nil
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
	return append(dst, b[:]...)
}
