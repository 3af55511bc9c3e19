package nametransform

import (
	"fmt"

	"github.com/cryptvol/cryptvol/internal/basen"
	"github.com/cryptvol/cryptvol/internal/cipher"
)

// streamTransform stream-encrypts a plaintext name directly, with no
// padding, then base-N encodes the result. Cheaper than blockTransform and
// exactly length-preserving in the ciphertext domain, at the cost of
// leaking the plaintext length (rounded up to the alphabet's symbol size).
type streamTransform struct {
	cph      cipher.Cipher
	key      cipher.Key
	alphabet string
	bits     int
	fixedIV  uint64
}

// NewStreamTransform builds the stream name codec over the given cipher and
// key (normally an HKDF subkey independent of the content key).
func NewStreamTransform(cph cipher.Cipher, key cipher.Key, alphabet string, fixedIV uint64) Transform {
	bits := 6
	if alphabet == basen.Base32Alphabet {
		bits = 5
	}
	return &streamTransform{cph: cph, key: key, alphabet: alphabet, bits: bits, fixedIV: fixedIV}
}

func (t *streamTransform) MaxEncodedLen(plainLen int) int {
	return basen.EncodedLen(plainLen, 8, t.bits, true)
}

func (t *streamTransform) MaxDecodedLen(encLen int) int {
	return basen.EncodedLen(encLen, t.bits, 8, true)
}

func (t *streamTransform) iv(chain *IVChain) uint64 {
	if chain != nil {
		return chain.Current()
	}
	return t.fixedIV
}

func (t *streamTransform) Encode(plaintext string, chain *IVChain) (string, error) {
	if passThrough(plaintext) {
		return plaintext, nil
	}
	pt := []byte(plaintext)
	buf := append([]byte(nil), pt...)
	t.cph.StreamEncode(t.key, t.iv(chain), buf)

	packed := basen.ChangeBase2(buf, 8, t.bits, true)
	encoded, err := basen.ToASCII(packed, t.alphabet)
	if err != nil {
		return "", err
	}

	chain.Advance(t.cph, t.key, pt)
	return encoded, nil
}

func (t *streamTransform) Decode(ciphertext string, chain *IVChain) (string, error) {
	if passThrough(ciphertext) {
		return ciphertext, nil
	}
	packed, err := basen.FromASCII(ciphertext, t.alphabet)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	buf := basen.ChangeBase2(packed, t.bits, 8, false)

	t.cph.StreamDecode(t.key, t.iv(chain), buf)

	chain.Advance(t.cph, t.key, buf)
	return string(buf), nil
}
