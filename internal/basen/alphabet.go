package basen

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Base64Alphabet is a 64-symbol, filesystem-safe alphabet: neither '/' nor
// '.' ever appear in an encoded name, so encoded names never look like a
// path separator or a relative-path marker.
const Base64Alphabet = ",-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Base32Alphabet is the RFC 4648 base-32 symbol set, decoded
// case-insensitively — grounded in the same "caseInsensitiveBase32"
// treatment rclone's crypt backend gives filenames, since a case-preserving
// backing filesystem can otherwise round-trip through a case-folding one.
const Base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// ToASCII maps each low-bits symbol in src (6-bit symbols for
// Base64Alphabet, 5-bit for Base32Alphabet) to its alphabet character.
func ToASCII(src []byte, alphabet string) (string, error) {
	bits := bitsFor(alphabet)
	var sb strings.Builder
	sb.Grow(len(src))
	for _, b := range src {
		if int(b) >= len(alphabet) {
			return "", fmt.Errorf("basen: symbol %d out of range for %d-bit alphabet", b, bits)
		}
		sb.WriteByte(alphabet[b])
	}
	return sb.String(), nil
}

// FromASCII inverts ToASCII. Base32Alphabet decodes case-insensitively.
func FromASCII(s string, alphabet string) ([]byte, error) {
	caseInsensitive := alphabet == Base32Alphabet
	lookup := make(map[byte]byte, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		lookup[c] = byte(i)
		if caseInsensitive {
			lookup[lower(c)] = byte(i)
		}
	}

	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		v, ok := lookup[s[i]]
		if !ok {
			return nil, fmt.Errorf("basen: character %q not in alphabet", s[i])
		}
		out[i] = v
	}
	return out, nil
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func bitsFor(alphabet string) int {
	switch len(alphabet) {
	case 64:
		return 6
	case 32:
		return 5
	default:
		return 0
	}
}

// DecodeStandardBase64 decodes a conventional base64 blob (standard
// alphabet, '='-padded, whitespace-tolerant), for interop with blobs that
// use the standard alphabet rather than the filesystem-safe one above.
// internal/volumeconfig does not call it; it decodes its blobs with
// encoding/base64 directly.
func DecodeStandardBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(s)
}

// EncodeStandardBase64 is the inverse of DecodeStandardBase64.
func EncodeStandardBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
