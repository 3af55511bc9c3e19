package contentenc

import (
	"crypto/subtle"
	"errors"
)

var (
	// ErrIntegrity is returned when a block MAC fails to verify.
	ErrIntegrity = errors.New("contentenc: integrity check failed")
	// ErrCorrupt is returned when the backing file is structurally
	// inconsistent with the volume layout (short reads inside a block,
	// wrong header size).
	ErrCorrupt = errors.New("contentenc: corrupt ciphertext structure")
	// ErrClosed is returned by any operation on a file whose state is
	// neither OPEN nor OPEN-DEGRADED (a degraded file returns the error that
	// degraded it instead).
	ErrClosed = errors.New("contentenc: file is not open")
)

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
