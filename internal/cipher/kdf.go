package cipher

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// Argon2Params holds the Argon2id tuning knobs, with the same hardcoded
// floors gocryptfs's configfile.Argon2idKDF enforces so a tampered-down
// config can't silently weaken key derivation.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32 // iterations
	Parallelism uint8
}

const (
	argon2MinMemory = 16 * 1024
	argon2MinTime   = 1
	argon2MinP      = 1

	pbkdf2MinIterations = 100_000
)

// PBKDF2Params holds the PBKDF2 iteration count for configs that pin one
// directly (interop with volumes created before Argon2id became the
// default), mirroring gocryptfs's ScryptKDF-style legacy KDF record.
type PBKDF2Params struct {
	Iterations int
}

func (p PBKDF2Params) validate() error {
	if p.Iterations < pbkdf2MinIterations {
		return fmt.Errorf("%w: pbkdf2 iterations %d below minimum %d", ErrWeakParameters, p.Iterations, pbkdf2MinIterations)
	}
	return nil
}

// DefaultArgon2Params mirrors gocryptfs's Argon2idDefault* constants.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Memory: 64 * 1024, Time: 3, Parallelism: 4}
}

func (p Argon2Params) validate() error {
	if p.Memory < argon2MinMemory {
		return fmt.Errorf("%w: argon2 memory %d KiB below minimum %d KiB", ErrWeakParameters, p.Memory, argon2MinMemory)
	}
	if p.Time < argon2MinTime {
		return fmt.Errorf("%w: argon2 time %d below minimum %d", ErrWeakParameters, p.Time, argon2MinTime)
	}
	if p.Parallelism < argon2MinP {
		return fmt.Errorf("%w: argon2 parallelism %d below minimum %d", ErrWeakParameters, p.Parallelism, argon2MinP)
	}
	return nil
}

// DeriveArgon2id runs Argon2id with p's parameters, returning a Key of
// keyLen bytes. This is the recommended password KDF for new volumes;
// NewKeyFromPassword's PBKDF2 path remains for interop with configs that
// pin an iteration count.
func DeriveArgon2id(pw, salt []byte, p Argon2Params, keyLen int) (Key, error) {
	if err := p.validate(); err != nil {
		return Key{}, err
	}
	return NewKey(argon2.IDKey(pw, salt, p.Time, p.Memory, p.Parallelism, uint32(keyLen))), nil
}

// derivePBKDF2 runs PBKDF2-HMAC-SHA256 for iterations rounds.
func derivePBKDF2(pw, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations < pbkdf2MinIterations {
		return nil, fmt.Errorf("%w: pbkdf2 iterations %d below minimum %d", ErrWeakParameters, iterations, pbkdf2MinIterations)
	}
	return pbkdf2.Key(pw, salt, iterations, keyLen, sha256.New), nil
}

// calibratePBKDF2 times one throwaway derivation at the minimum iteration
// count and linearly extrapolates an iteration count that takes
// approximately targetDurationMs (never below the minimum), then derives the
// key with that count. The extrapolated count is not measured again.
func calibratePBKDF2(pw, salt []byte, keyLen, targetDurationMs int) (key []byte, iterations int, err error) {
	const probe = pbkdf2MinIterations
	start := time.Now()
	_, err = derivePBKDF2(pw, salt, probe, keyLen)
	if err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Microsecond
	}

	target := time.Duration(targetDurationMs) * time.Millisecond
	iterations = int(float64(probe) * float64(target) / float64(elapsed))
	if iterations < pbkdf2MinIterations {
		iterations = pbkdf2MinIterations
	}

	key, err = derivePBKDF2(pw, salt, iterations, keyLen)
	return key, iterations, err
}

// deriveKeyFromPassword implements the Cipher.NewKeyFromPassword contract
// shared by every family: PBKDF2-HMAC-SHA256, calibrated when iterations is
// 0. Per-family code only supplies its own key length.
func deriveKeyFromPassword(pw, salt []byte, iterations, targetDurationMs, keyLen int) (Key, int, error) {
	if iterations == 0 {
		raw, actual, err := calibratePBKDF2(pw, salt, keyLen, targetDurationMs)
		if err != nil {
			return Key{}, 0, err
		}
		return NewKey(raw), actual, nil
	}
	raw, err := derivePBKDF2(pw, salt, iterations, keyLen)
	if err != nil {
		return Key{}, 0, err
	}
	return NewKey(raw), iterations, nil
}

// DeriveSubkey derives a purpose-bound subkey from a master key via HKDF,
// so the content key, the name-codec key, and the key-wrapping key are
// cryptographically independent even though they all trace back to one
// password derivation.
func DeriveSubkey(master []byte, purpose string, keyLen int) (Key, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(purpose))
	out := make([]byte, keyLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return Key{}, fmt.Errorf("cipher: hkdf expand %q: %w", purpose, err)
	}
	return NewKey(out), nil
}
