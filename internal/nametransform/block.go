package nametransform

import (
	"crypto/aes"
	"encoding/binary"
	"fmt"

	"github.com/rfjakob/eme"

	"github.com/cryptvol/cryptvol/internal/basen"
	"github.com/cryptvol/cryptvol/internal/cipher"
)

// blockTransform pads a plaintext name to the AES block boundary, wide-block
// encrypts it with EME (github.com/rfjakob/eme — the same mode real
// gocryptfs uses for names, independent of whatever cipher family the
// volume picked for file content), and base-N encodes the result. Padding
// is a 2-byte big-endian length prefix followed by zero fill, which lets
// Decode recover the exact plaintext length after stripping the pad.
type blockTransform struct {
	eme      *eme.EMECipher
	key      cipher.Key
	nameCph  cipher.Cipher
	alphabet string
	bits     int
	fixedIV  uint64
}

const blockBoundary = aes.BlockSize // 16 bytes

// NewBlockTransform builds the block-padded name codec. key must be a
// 32-byte AES-256 key distinct from the volume's content key (callers
// derive it via cipher.DeriveSubkey with the "cryptvol-name" purpose
// string). nameCph supplies MAC64 for IV chaining only; EME itself always
// runs over AES regardless of the content cipher family.
func NewBlockTransform(key cipher.Key, nameCph cipher.Cipher, alphabet string, fixedIV uint64) (Transform, error) {
	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("nametransform: building AES-EME key: %w", err)
	}
	bits := 6
	if alphabet == basen.Base32Alphabet {
		bits = 5
	}
	return &blockTransform{
		eme:      eme.New(block),
		key:      key,
		nameCph:  nameCph,
		alphabet: alphabet,
		bits:     bits,
		fixedIV:  fixedIV,
	}, nil
}

func (t *blockTransform) MaxEncodedLen(plainLen int) int {
	padded := ((2 + plainLen + blockBoundary - 1) / blockBoundary) * blockBoundary
	return basen.EncodedLen(padded, 8, t.bits, true)
}

func (t *blockTransform) MaxDecodedLen(encLen int) int {
	packed := basen.EncodedLen(encLen, t.bits, 8, true)
	return packed
}

func (t *blockTransform) tweak(chain *IVChain) []byte {
	iv := t.fixedIV
	if chain != nil {
		iv = chain.Current()
	}
	var tw [blockBoundary]byte
	binary.BigEndian.PutUint64(tw[8:], iv)
	return tw[:]
}

func (t *blockTransform) Encode(plaintext string, chain *IVChain) (string, error) {
	if passThrough(plaintext) {
		return plaintext, nil
	}
	pt := []byte(plaintext)
	paddedLen := ((2 + len(pt) + blockBoundary - 1) / blockBoundary) * blockBoundary
	buf := make([]byte, paddedLen)
	binary.BigEndian.PutUint16(buf[:2], uint16(len(pt)))
	copy(buf[2:], pt)

	ciphertext := t.eme.Encrypt(t.tweak(chain), buf)
	packed := basen.ChangeBase2(ciphertext, 8, t.bits, true)
	encoded, err := basen.ToASCII(packed, t.alphabet)
	if err != nil {
		return "", err
	}

	chain.Advance(t.nameCph, t.key, pt)
	return encoded, nil
}

func (t *blockTransform) Decode(ciphertext string, chain *IVChain) (string, error) {
	if passThrough(ciphertext) {
		return ciphertext, nil
	}
	packed, err := basen.FromASCII(ciphertext, t.alphabet)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	raw := basen.ChangeBase2(packed, t.bits, 8, false)
	if len(raw) == 0 || len(raw)%blockBoundary != 0 {
		return "", fmt.Errorf("%w: decoded length %d not a block multiple", ErrInvalidName, len(raw))
	}

	buf := t.eme.Decrypt(t.tweak(chain), raw)
	if len(buf) < 2 {
		return "", fmt.Errorf("%w: missing length prefix", ErrInvalidName)
	}
	plainLen := int(binary.BigEndian.Uint16(buf[:2]))
	if plainLen > len(buf)-2 {
		return "", fmt.Errorf("%w: length prefix %d exceeds payload", ErrInvalidName, plainLen)
	}
	pt := buf[2 : 2+plainLen]

	chain.Advance(t.nameCph, t.key, pt)
	return string(pt), nil
}
