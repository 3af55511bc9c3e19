// Package volumeconfig persists and loads the volume's cryptvol.conf:
// cipher/name-codec choice, block geometry, and the password-wrapped volume
// key, the way gocryptfs's configfile package owns gocryptfs.conf.
package volumeconfig

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cryptvol/cryptvol/internal/cipher"
)

// ErrHeaderLayoutMismatch is returned by Load when the block MAC settings
// cannot describe a valid block layout: block_mac_bytes is not 0, 2, 4, or
// 8, or a block MAC is enabled without a random prefix.
var ErrHeaderLayoutMismatch = errors.New("volumeconfig: header layout does not match configured block MAC/unique-IV settings")

const currentVersion = 1

// kdfDocument is the tagged union of the two supported password KDFs.
type kdfDocument struct {
	Algorithm string               `json:"algorithm"` // "argon2id" or "pbkdf2"
	Argon2    *cipher.Argon2Params `json:"argon2,omitempty"`
	PBKDF2    *cipher.PBKDF2Params `json:"pbkdf2,omitempty"`
}

// VolumeConfig is the persisted document described in spec.md §6 and
// SPEC_FULL.md §6.1.
type VolumeConfig struct {
	Version int `json:"version"`

	CipherDescriptor string `json:"cipher_descriptor"`
	NameDescriptor   string `json:"name_descriptor"`

	KeySizeBits    int `json:"key_size_bits"`
	BlockSizeBytes int `json:"block_size_bytes"`

	BlockMACBytes     int `json:"block_mac_bytes"`
	BlockMACRandBytes int `json:"block_mac_rand_bytes"`

	UniqueIV           bool `json:"unique_iv"`
	ChainedNameIV      bool `json:"chained_name_iv"`
	ExternalIVChaining bool `json:"external_iv_chaining"`

	EncryptedKey string `json:"encrypted_key"` // base64
	Salt         string `json:"salt"`          // base64

	KDF kdfDocument `json:"kdf"`
}

// HeaderHasMAC reports whether the header block carries its own MAC+rand
// prefix — derived from BlockMACBytes, never stored directly (the resolved
// Open Question from spec.md §9 / SPEC_FULL.md §3).
func (c *VolumeConfig) HeaderHasMAC() bool {
	return c.BlockMACBytes > 0
}

// DecodedKey base64-decodes EncryptedKey.
func (c *VolumeConfig) DecodedKey() ([]byte, error) {
	return base64.StdEncoding.DecodeString(c.EncryptedKey)
}

// SetEncryptedKey base64-encodes and stores a wrapped key blob.
func (c *VolumeConfig) SetEncryptedKey(blob []byte) {
	c.EncryptedKey = base64.StdEncoding.EncodeToString(blob)
}

// DecodedSalt base64-decodes Salt.
func (c *VolumeConfig) DecodedSalt() ([]byte, error) {
	return base64.StdEncoding.DecodeString(c.Salt)
}

// SetSalt base64-encodes and stores the password salt.
func (c *VolumeConfig) SetSalt(salt []byte) {
	c.Salt = base64.StdEncoding.EncodeToString(salt)
}

// New builds a VolumeConfig with gocryptfs-style defaults: Argon2id KDF,
// unique per-file IVs, and mac_64 block authentication.
func New(cipherDescriptor, nameDescriptor string, keySizeBits, blockSizeBytes int) *VolumeConfig {
	return &VolumeConfig{
		Version:            currentVersion,
		CipherDescriptor:   cipherDescriptor,
		NameDescriptor:     nameDescriptor,
		KeySizeBits:        keySizeBits,
		BlockSizeBytes:     blockSizeBytes,
		BlockMACBytes:      8,
		BlockMACRandBytes:  16,
		UniqueIV:           true,
		ChainedNameIV:      true,
		ExternalIVChaining: false,
		KDF: kdfDocument{
			Algorithm: "argon2id",
			Argon2:    paramsPtr(cipher.DefaultArgon2Params()),
		},
	}
}

func paramsPtr(p cipher.Argon2Params) *cipher.Argon2Params { return &p }

// Save writes c as indented JSON to path, matching gocryptfs.conf's
// human-readable layout.
func Save(path string, c *VolumeConfig) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("volumeconfig: marshal: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0600)
}

// Load reads and validates the config at path.
func Load(path string) (*VolumeConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("volumeconfig: open: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("volumeconfig: read: %w", err)
	}

	var c VolumeConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("volumeconfig: unmarshal: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func validate(c *VolumeConfig) error {
	if c.BlockSizeBytes <= 0 {
		return fmt.Errorf("volumeconfig: block_size_bytes must be positive, got %d", c.BlockSizeBytes)
	}
	if c.BlockMACBytes != 0 && c.BlockMACBytes != 2 && c.BlockMACBytes != 4 && c.BlockMACBytes != 8 {
		return fmt.Errorf("%w: block_mac_bytes must be 0, 2, 4, or 8, got %d", ErrHeaderLayoutMismatch, c.BlockMACBytes)
	}
	if c.BlockMACBytes > 0 && c.BlockMACRandBytes == 0 {
		return fmt.Errorf("%w: block MAC enabled without a random prefix", ErrHeaderLayoutMismatch)
	}
	switch c.KDF.Algorithm {
	case "argon2id":
		if c.KDF.Argon2 == nil {
			return fmt.Errorf("volumeconfig: kdf.algorithm is argon2id but kdf.argon2 is absent")
		}
	case "pbkdf2":
		if c.KDF.PBKDF2 == nil {
			return fmt.Errorf("volumeconfig: kdf.algorithm is pbkdf2 but kdf.pbkdf2 is absent")
		}
	default:
		return fmt.Errorf("volumeconfig: unknown kdf.algorithm %q", c.KDF.Algorithm)
	}
	return nil
}
