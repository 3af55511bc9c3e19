package cipher

import "errors"

var (
	// ErrAuthFailed is returned by ReadKey when the wrapped key's embedded
	// checksum does not verify: the blob was tampered with, or the wrong
	// wrapping key was used.
	ErrAuthFailed = errors.New("cipher: authentication failed")
	// ErrUnsupportedFamily is returned by Lookup/LookupByName when no
	// registered algorithm matches.
	ErrUnsupportedFamily = errors.New("cipher: unsupported algorithm family")
	// ErrBadKeySize is returned when key material doesn't match the size an
	// algorithm expects.
	ErrBadKeySize = errors.New("cipher: bad key size")
	// ErrWeakParameters is returned when KDF parameters fall below the
	// hardcoded minimums this package enforces.
	ErrWeakParameters = errors.New("cipher: KDF parameters below minimum")
	// ErrShortCiphertext is returned when a block or wrapped-key blob is too
	// small to contain its required prefix.
	ErrShortCiphertext = errors.New("cipher: ciphertext too short")
)
