package nametransform

import (
	"encoding/binary"

	"github.com/cryptvol/cryptvol/internal/cipher"
)

// IVChain carries the per-directory-walk IV accumulator spec.md's name
// codec chains from parent directory to child. A disabled chain always
// reports a fixed IV and never advances, matching volumes created with
// chained_name_iv off.
type IVChain struct {
	enabled bool
	iv      uint64
}

// NewIVChain returns a chain starting at seed (normally 0, or a
// volume-level external IV when external_iv_chaining is configured).
func NewIVChain(enabled bool, seed uint64) *IVChain {
	return &IVChain{enabled: enabled, iv: seed}
}

// Current returns the IV to use for the operation about to run.
func (c *IVChain) Current() uint64 {
	if c == nil {
		return 0
	}
	return c.iv
}

// Advance mixes data's MAC into the chain, using the current IV as the
// chaining slot, so the next sibling name gets a deterministic but
// distinct IV. No-op on a disabled or nil chain.
func (c *IVChain) Advance(c2 cipher.Cipher, key cipher.Key, data []byte) {
	if c == nil || !c.enabled {
		return
	}
	var chainBytes [8]byte
	binary.BigEndian.PutUint64(chainBytes[:], c.iv)
	c.iv = c2.MAC64(key, data, chainBytes[:])
}
