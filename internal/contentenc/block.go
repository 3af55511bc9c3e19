package contentenc

import (
	"encoding/binary"
	"fmt"

	"github.com/cryptvol/cryptvol/internal/cipher"
)

// headerBlockIndex is the MAC associated-data index reserved for the
// header block (the header is not part of the data-block sequence, so it
// cannot collide with a real block index).
const headerBlockIndex = ^uint64(0)

// macAD builds the MAC associated data spec.md calls for: (block_index,
// random_prefix, ciphertext_payload).
func macAD(blockIndex uint64, randPrefix, ciphertextPayload []byte) []byte {
	ad := make([]byte, 8+len(randPrefix)+len(ciphertextPayload))
	binary.BigEndian.PutUint64(ad[:8], blockIndex)
	n := copy(ad[8:], randPrefix)
	copy(ad[8+n:], ciphertextPayload)
	return ad
}

// computeMAC returns a macSize-byte MAC (0, 2, 4, or 8): nothing for 0, and
// otherwise cph.MAC16, MAC32 or MAC64, the 2- and 4-byte forms being XOR
// folds of the 8-byte MAC64.
func computeMAC(cph cipher.Cipher, key cipher.Key, ad []byte, macSize int) []byte {
	switch macSize {
	case 0:
		return nil
	case 2:
		v := cph.MAC16(key, ad, nil)
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, v)
		return b
	case 4:
		v := cph.MAC32(key, ad, nil)
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, v)
		return b
	case 8:
		v := cph.MAC64(key, ad, nil)
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v)
		return b
	default:
		panic(fmt.Sprintf("contentenc: unsupported block MAC size %d", macSize))
	}
}

// EncryptBlock seals plaintext (a full block or a short final block) into
// its on-disk form: [mac][rand][ciphertext payload]. full selects whether
// the cipher's block mode (whole blocks) or stream mode (short final block)
// encrypts the payload.
func EncryptBlock(cph cipher.Cipher, key cipher.Key, l Layout, fileIV uint64, blockIndex uint64, plaintext []byte, full bool) ([]byte, error) {
	payload := append([]byte(nil), plaintext...)
	iv := fileIV ^ blockIndex
	if full {
		if err := cph.BlockEncode(key, iv, payload); err != nil {
			return nil, fmt.Errorf("contentenc: encrypting block %d: %w", blockIndex, err)
		}
	} else {
		cph.StreamEncode(key, iv, payload)
	}

	randPrefix := make([]byte, l.RandSize)
	if l.RandSize > 0 {
		if err := cph.Randomize(randPrefix); err != nil {
			return nil, fmt.Errorf("contentenc: filling random prefix for block %d: %w", blockIndex, err)
		}
	}

	mac := computeMAC(cph, key, macAD(blockIndex, randPrefix, payload), l.MACSize)

	out := make([]byte, 0, l.M()+len(payload))
	out = append(out, mac...)
	out = append(out, randPrefix...)
	out = append(out, payload...)
	return out, nil
}

// DecryptBlock inverts EncryptBlock, verifying the MAC first when block MAC
// is enabled.
func DecryptBlock(cph cipher.Cipher, key cipher.Key, l Layout, fileIV uint64, blockIndex uint64, block []byte, full bool) ([]byte, error) {
	if len(block) < l.M() {
		return nil, fmt.Errorf("%w: block %d is %d bytes, need at least %d", ErrCorrupt, blockIndex, len(block), l.M())
	}
	mac := block[:l.MACSize]
	randPrefix := block[l.MACSize : l.MACSize+l.RandSize]
	payload := append([]byte(nil), block[l.M():]...)

	if l.MACSize > 0 {
		want := computeMAC(cph, key, macAD(blockIndex, randPrefix, payload), l.MACSize)
		if !constantTimeEqual(mac, want) {
			return nil, fmt.Errorf("%w: MAC mismatch on block %d", ErrIntegrity, blockIndex)
		}
	}

	iv := fileIV ^ blockIndex
	if full {
		if err := cph.BlockDecode(key, iv, payload); err != nil {
			return nil, fmt.Errorf("contentenc: decrypting block %d: %w", blockIndex, err)
		}
	} else {
		cph.StreamDecode(key, iv, payload)
	}
	return payload, nil
}

// encryptHeader builds the header block: file IV (8 bytes) + plaintext-size
// hint (8 bytes), zero-padded to BlockSize, stream-encrypted under the
// volume key with IV 0, optionally MAC-prefixed the same way a data block
// is (the resolved header-block-layout Open Question).
func encryptHeader(cph cipher.Cipher, key cipher.Key, l Layout, fileIV uint64, plainSize int64) ([]byte, error) {
	payload := make([]byte, l.BlockSize)
	binary.BigEndian.PutUint64(payload[0:8], fileIV)
	binary.BigEndian.PutUint64(payload[8:16], uint64(plainSize))
	cph.StreamEncode(key, 0, payload)

	if !l.HeaderHasMAC {
		return payload, nil
	}
	randPrefix := make([]byte, l.RandSize)
	if l.RandSize > 0 {
		if err := cph.Randomize(randPrefix); err != nil {
			return nil, fmt.Errorf("contentenc: filling random prefix for header: %w", err)
		}
	}
	mac := computeMAC(cph, key, macAD(headerBlockIndex, randPrefix, payload), l.MACSize)
	out := make([]byte, 0, l.M()+len(payload))
	out = append(out, mac...)
	out = append(out, randPrefix...)
	out = append(out, payload...)
	return out, nil
}

// decryptHeader inverts encryptHeader.
func decryptHeader(cph cipher.Cipher, key cipher.Key, l Layout, header []byte) (fileIV uint64, plainSize int64, err error) {
	if len(header) != l.HeaderSize() {
		return 0, 0, fmt.Errorf("%w: header is %d bytes, want %d", ErrCorrupt, len(header), l.HeaderSize())
	}
	payload := header
	if l.HeaderHasMAC {
		mac := header[:l.MACSize]
		randPrefix := header[l.MACSize:l.M()]
		payload = append([]byte(nil), header[l.M():]...)
		if l.MACSize > 0 {
			want := computeMAC(cph, key, macAD(headerBlockIndex, randPrefix, payload), l.MACSize)
			if !constantTimeEqual(mac, want) {
				return 0, 0, fmt.Errorf("%w: MAC mismatch on header block", ErrIntegrity)
			}
		}
	} else {
		payload = append([]byte(nil), header...)
	}

	cph.StreamDecode(key, 0, payload)
	fileIV = binary.BigEndian.Uint64(payload[0:8])
	plainSize = int64(binary.BigEndian.Uint64(payload[8:16]))
	return fileIV, plainSize, nil
}
