package cipher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// mac64 computes an 8-byte keyed MAC of data, mixing chain in ahead of data
// when non-nil so a sequence of calls can be chained (spec.md's mac_64
// "chained_iv_inout" slot).
func mac64(key, chain, data []byte) uint64 {
	h := hmac.New(sha256.New, key)
	if chain != nil {
		h.Write(chain)
	}
	h.Write(data)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// mac32 XOR-folds a 64-bit MAC down to 32 bits.
func mac32(v uint64) uint32 {
	return uint32(v>>32) ^ uint32(v)
}

// mac16 XOR-folds a 32-bit MAC down to 16 bits.
func mac16(v uint32) uint16 {
	return uint16(v>>16) ^ uint16(v)
}
