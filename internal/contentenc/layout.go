// Package contentenc implements the block-oriented encrypted file layer:
// a byte-addressable plaintext view over a ciphertext backing file made of
// a header block plus fixed-size, individually MAC'd and IV'd data blocks.
package contentenc

import "fmt"

// Layout describes one volume's block geometry, derived once from its
// configuration and shared read-only by every open file.
type Layout struct {
	BlockSize     int  // B: plaintext bytes per data block
	MACSize       int  // mac_bytes: keyed MAC prefix per block, 0 disables block MAC
	RandSize      int  // rand_bytes: random prefix per block, forces ciphertext diversity
	UniqueIV      bool // header block carries a per-file IV
	HeaderHasMAC  bool // header block itself carries a MAC+rand prefix (resolved Open Question)
}

// M is the combined per-block MAC-plus-random prefix size.
func (l Layout) M() int { return l.MACSize + l.RandSize }

// blockTotal is the on-disk size of one data block including its prefix.
func (l Layout) blockTotal() int { return l.BlockSize + l.M() }

// HeaderSize is H: the size in bytes of the (optional) header block.
func (l Layout) HeaderSize() int {
	if !l.UniqueIV {
		return 0
	}
	if l.HeaderHasMAC {
		return l.M() + l.BlockSize
	}
	return l.BlockSize
}

// BlockIndex returns the data-block index containing plaintext byte p.
func (l Layout) BlockIndex(p int64) int64 { return p / int64(l.BlockSize) }

// WithinBlock returns the offset of plaintext byte p within its block.
func (l Layout) WithinBlock(p int64) int64 { return p % int64(l.BlockSize) }

// CiphertextOffset implements spec.md's block-mapping formula: the backing
// file offset of plaintext byte p.
func (l Layout) CiphertextOffset(p int64) int64 {
	blockIndex := l.BlockIndex(p)
	within := l.WithinBlock(p)
	return int64(l.HeaderSize()) + blockIndex*int64(l.blockTotal()) + int64(l.M()) + within
}

// BlockCiphertextOffset is the backing file offset of data block i's first
// byte (the start of its MAC+rand prefix, not its payload).
func (l Layout) BlockCiphertextOffset(i int64) int64 {
	return int64(l.HeaderSize()) + i*int64(l.blockTotal())
}

// NumBlocks returns how many data blocks a file of plainSize plaintext
// bytes spans (0 for an empty file).
func (l Layout) NumBlocks(plainSize int64) int64 {
	if plainSize == 0 {
		return 0
	}
	return (plainSize-1)/int64(l.BlockSize) + 1
}

// LastBlockPayloadLen returns the payload length of the final data block of
// a file of plainSize plaintext bytes (0 < result <= BlockSize).
func (l Layout) LastBlockPayloadLen(plainSize int64) int {
	if plainSize == 0 {
		return 0
	}
	rem := plainSize % int64(l.BlockSize)
	if rem == 0 {
		return l.BlockSize
	}
	return int(rem)
}

// PlainSizeFromCiphertextSize inverts the block-mapping formula when no
// header carries the plaintext size directly (UniqueIV disabled): it is
// derived from the backing file's size and the block geometry alone.
func (l Layout) PlainSizeFromCiphertextSize(cipherSize int64) (int64, error) {
	body := cipherSize - int64(l.HeaderSize())
	if body < 0 {
		return 0, fmt.Errorf("%w: backing file shorter than header", ErrCorrupt)
	}
	if body == 0 {
		return 0, nil
	}
	bt := int64(l.blockTotal())
	full := body / bt
	rem := body % bt
	if rem == 0 {
		return full * int64(l.BlockSize), nil
	}
	if rem <= int64(l.M()) {
		return 0, fmt.Errorf("%w: trailing partial block smaller than MAC+rand prefix", ErrCorrupt)
	}
	return full*int64(l.BlockSize) + rem - int64(l.M()), nil
}
