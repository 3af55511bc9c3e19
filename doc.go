// Package cryptvol provides a transparent encryption layer for the AbsFs
// filesystem abstraction, enabling secure at-rest encryption with modern
// cryptographic primitives.
//
// # Overview
//
// cryptvol implements the absfs.FileSystem interface, allowing it to wrap
// any AbsFs-compatible filesystem and provide transparent encryption and
// decryption of both file contents and filenames.
//
// # Supported Cipher Families
//
// - AES-256-CTR: AES in counter mode, the stream-cipher half of a
//   keystream + detached-MAC construction.
// - ChaCha20 (unauthenticated): raw keystream, same construction.
//
// Neither family is an AEAD on its own — per-block integrity comes from a
// keyed MAC (mac_64/mac_32/mac_16) the content layer applies over
// (block index, random prefix, ciphertext payload), not from the cipher
// itself. This lets the registry support cipher families that have no
// built-in AEAD mode without weakening the on-disk guarantees.
//
// # Basic Usage
//
//	base, _ := memfs.NewFS()
//	vol, err := cryptvol.Init(base, "/cryptvol.conf", []byte("hunter2"), "aes-ctr", 256, 4096)
//	if err != nil {
//	    panic(err)
//	}
//
//	f, _ := vol.Create("/secret.txt")
//	f.WriteString("this will be encrypted on disk, filename included")
//	f.Close()
//
// # Key Derivation
//
// Argon2id is the default password KDF (memory-hard, PHC-winning).
// PBKDF2-HMAC-SHA256 remains selectable for interop with older configs
// that pin an iteration count. The password-derived master key yields two
// independent subkeys via HKDF: one for the filename codec and one for
// wrapping the volume's content key, which is drawn at random when the
// volume is created and stored wrapped in its configuration.
//
// # File Format
//
// Ciphertext files are `[header block?][data block]…`. The header block
// (present when the volume uses unique per-file IVs) holds the file's IV
// and a plaintext-size hint, encrypted under IV 0. Each data block is
// `[mac][rand][payload ≤ block_size]` — see internal/contentenc for the
// exact block-mapping formula.
//
// # Not Protected Against
//
//   - Memory dumps while files are decrypted in memory.
//   - Side-channel attacks (timing, cache).
//   - Metadata leakage (file sizes, access patterns, directory structure
//     when chained name IVs are disabled).
package cryptvol
