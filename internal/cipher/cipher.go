package cipher

// Cipher is the contract every registered algorithm must implement: key
// lifecycle (derive/generate/wrap/unwrap/compare), the MAC family used
// for per-block integrity and IV chaining, and the two keystream shapes the
// rest of the module drives it through — a stream form for arbitrary-length
// buffers (key wrapping, the content header block, a short final data
// block) and a block form for buffers that are a whole multiple of the
// cipher's block size (full content data blocks).
type Cipher interface {
	// NewKeyFromPassword derives a Key from pw and salt. If iterations is 0,
	// the derivation is calibrated: it picks an iteration count so that one
	// derivation takes approximately targetDurationMs on this machine.
	NewKeyFromPassword(pw, salt []byte, iterations int, targetDurationMs int) (Key, int, error)

	// NewRandomKey draws a fresh Key from the strong entropy source.
	NewRandomKey() (Key, error)

	// ReadKey unwraps an encrypted key blob under wrappingKey. If check is
	// true, it also verifies the embedded integrity checksum.
	ReadKey(blob []byte, wrappingKey Key, check bool) (Key, error)

	// WriteKey wraps key under wrappingKey, embedding an integrity checksum.
	WriteKey(key Key, wrappingKey Key) ([]byte, error)

	// CompareKeys reports equality in constant time.
	CompareKeys(a, b Key) bool

	// KeySize is the raw key size in bytes this algorithm expects.
	KeySize() int

	// EncodedKeySize is the size in bytes of a WriteKey blob for this
	// algorithm (fixed, since wrapping overhead is constant).
	EncodedKeySize() int

	// CipherBlockSize is the block size in bytes that BlockEncode/BlockDecode
	// require buffer lengths to be a multiple of (16 for AES, 64 for
	// ChaCha20, its internal block size).
	CipherBlockSize() int

	// Randomize fills dst with cryptographically strong random bytes.
	Randomize(dst []byte) error

	// MAC64/MAC32/MAC16 compute a keyed MAC of data, optionally chained
	// from a prior MAC value (chain may be nil). MAC64 is 8 bytes; MAC32 and
	// MAC16 XOR-fold it down to 4 and 2 bytes respectively.
	MAC64(key Key, data []byte, chain []byte) uint64
	MAC32(key Key, data []byte, chain []byte) uint32
	MAC16(key Key, data []byte, chain []byte) uint16

	// StreamEncode/StreamDecode XOR a keystream derived from (key, iv) over
	// buf in place, for arbitrary-length buffers. iv is a 64-bit value; the
	// content layer passes file_iv XOR block_index.
	StreamEncode(key Key, iv uint64, buf []byte)
	StreamDecode(key Key, iv uint64, buf []byte)

	// BlockEncode/BlockDecode are the same keystream operation as
	// StreamEncode/StreamDecode, additionally validating that len(buf) is a
	// multiple of CipherBlockSize(); used for whole ciphertext data blocks,
	// where StreamEncode is reserved for a short final block.
	BlockEncode(key Key, iv uint64, buf []byte) error
	BlockDecode(key Key, iv uint64, buf []byte) error
}
