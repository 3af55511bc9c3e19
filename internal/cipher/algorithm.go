// Package cipher implements the content-encryption algorithm registry:
// raw stream/block keystream ciphers (no built-in AEAD tag), password-based
// key derivation, and the detached MAC/RNG primitives the content and
// filename layers build on to get integrity without an AEAD mode.
package cipher

import "fmt"

// Descriptor identifies an algorithm family at a specific compatibility
// generation, as persisted in a volume configuration.
type Descriptor struct {
	Family  string // e.g. "aes-ctr", "chacha20"
	Current uint16 // generation this volume was created with
	Age     uint16 // oldest generation this volume's readers must still support
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s/%d(age %d)", d.Family, d.Current, d.Age)
}

// Satisfies reports whether an algorithm registered under "have" can serve a
// volume that was described by "d": families must match, the algorithm's
// current generation must be at or above what the volume asked for, and the
// algorithm's backward-compatibility window (current-age) must reach back
// far enough to still cover the volume's generation.
func (have Descriptor) Satisfies(d Descriptor) bool {
	if have.Family != d.Family {
		return false
	}
	if have.Current < d.Current {
		return false
	}
	if have.Current-have.Age > d.Current {
		return false
	}
	return true
}

// Algorithm is the catalog entry for one cipher family: human metadata plus
// a constructor for an instance bound to a concrete key.
type Algorithm struct {
	Name        string
	Description string
	Descriptor  Descriptor
	KeySizes    []int // acceptable raw key sizes in bytes
	BlockSize   int   // CipherBlockSize() for this family
	StreamCap   bool  // supports StreamEncode/StreamDecode
	Hidden      bool  // excluded from List unless includeHidden is set
	New         func(key []byte) (Cipher, error)
}

func (a Algorithm) acceptsKeySize(n int) bool {
	for _, k := range a.KeySizes {
		if k == n {
			return true
		}
	}
	return false
}
