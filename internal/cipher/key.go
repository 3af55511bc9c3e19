package cipher

import "crypto/subtle"

// Key is an opaque handle around raw key material. It is always passed by
// value; callers that need to release it early should call Zero explicitly
// rather than rely on garbage collection.
type Key struct {
	raw []byte
}

// NewKey wraps raw key bytes. The Key takes ownership of the slice.
func NewKey(raw []byte) Key {
	return Key{raw: raw}
}

// Bytes exposes the raw key material. Callers must not retain the returned
// slice past a Zero call.
func (k Key) Bytes() []byte {
	return k.raw
}

// Len returns the key size in bytes.
func (k Key) Len() int {
	return len(k.raw)
}

// Equal performs a constant-time comparison.
func (k Key) Equal(other Key) bool {
	if len(k.raw) != len(other.raw) {
		return false
	}
	return subtle.ConstantTimeCompare(k.raw, other.raw) == 1
}

// Zero overwrites the key material in place. Safe to call more than once.
func (k Key) Zero() {
	for i := range k.raw {
		k.raw[i] = 0
	}
}
