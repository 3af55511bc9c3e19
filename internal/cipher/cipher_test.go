package cipher

import (
	"bytes"
	"testing"
)

func TestDescriptorSatisfies(t *testing.T) {
	cases := []struct {
		name string
		have Descriptor
		want Descriptor
		ok   bool
	}{
		{"exact match", Descriptor{"aes-ctr", 1, 0}, Descriptor{"aes-ctr", 1, 0}, true},
		{"newer current, in age window", Descriptor{"aes-ctr", 3, 2}, Descriptor{"aes-ctr", 2, 0}, true},
		{"older current fails", Descriptor{"aes-ctr", 1, 0}, Descriptor{"aes-ctr", 2, 0}, false},
		{"outside age window fails", Descriptor{"aes-ctr", 5, 1}, Descriptor{"aes-ctr", 2, 0}, false},
		{"family mismatch", Descriptor{"chacha20", 1, 0}, Descriptor{"aes-ctr", 1, 0}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.have.Satisfies(c.want); got != c.ok {
				t.Errorf("Satisfies() = %v, want %v", got, c.ok)
			}
		})
	}
}

func TestRegistryLookupByName(t *testing.T) {
	if _, ok := LookupByName("aes-ctr", aesKeySize); !ok {
		t.Fatal("expected aes-ctr to be registered")
	}
	if _, ok := LookupByName("aes-ctr", 999); ok {
		t.Fatal("expected wrong key size to be rejected")
	}
	if _, ok := LookupByName("nonexistent", 0); ok {
		t.Fatal("expected unregistered family to miss")
	}
}

func testCipherRoundTrip(t *testing.T, name string, keySize int) {
	alg, ok := LookupByName(name, keySize)
	if !ok {
		t.Fatalf("%s not registered", name)
	}
	c, err := alg.New(bytes.Repeat([]byte{0x42}, keySize))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key, err := c.NewRandomKey()
	if err != nil {
		t.Fatalf("NewRandomKey: %v", err)
	}

	// 64 bytes: a whole number of blocks for both AES (16) and ChaCha20 (64).
	plaintext := append([]byte("the quick brown fox jumps over the lazy dog...."), bytes.Repeat([]byte{'.'}, 17)...)
	buf := append([]byte(nil), plaintext...)
	if err := c.BlockEncode(key, 7, buf); err != nil {
		t.Fatalf("BlockEncode: %v", err)
	}
	if bytes.Equal(buf, plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}
	if err := c.BlockDecode(key, 7, buf); err != nil {
		t.Fatalf("BlockDecode: %v", err)
	}
	if !bytes.Equal(buf, plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", buf, plaintext)
	}

	// Stream path over an odd length not a multiple of the block size.
	short := []byte("odd length!")
	streamed := append([]byte(nil), short...)
	c.StreamEncode(key, 99, streamed)
	c.StreamDecode(key, 99, streamed)
	if !bytes.Equal(streamed, short) {
		t.Fatalf("stream round trip mismatch: got %q, want %q", streamed, short)
	}

	blob, err := c.WriteKey(key, key)
	if err != nil {
		t.Fatalf("WriteKey: %v", err)
	}
	readBack, err := c.ReadKey(blob, key, true)
	if err != nil {
		t.Fatalf("ReadKey: %v", err)
	}
	if !c.CompareKeys(key, readBack) {
		t.Fatal("unwrapped key does not match original")
	}

	tampered := append([]byte(nil), blob...)
	tampered[0] ^= 0xff
	if _, err := c.ReadKey(tampered, key, true); err == nil {
		t.Fatal("expected ReadKey to fail on tampered blob")
	}
}

func TestAESCTRRoundTrip(t *testing.T)    { testCipherRoundTrip(t, "aes-ctr", aesKeySize) }
func TestChaCha20RoundTrip(t *testing.T)  { testCipherRoundTrip(t, "chacha20", chacha20KeySize) }

func TestPBKDF2Calibration(t *testing.T) {
	if testing.Short() {
		t.Skip("calibration is timing-sensitive")
	}
	alg, _ := LookupByName("aes-ctr", aesKeySize)
	c, _ := alg.New(bytes.Repeat([]byte{1}, aesKeySize))

	salt := bytes.Repeat([]byte{2}, 32)
	key, iterations, err := c.NewKeyFromPassword([]byte("hunter2"), salt, 0, 50)
	if err != nil {
		t.Fatalf("NewKeyFromPassword: %v", err)
	}
	if iterations < pbkdf2MinIterations {
		t.Fatalf("calibrated iterations %d below minimum %d", iterations, pbkdf2MinIterations)
	}
	if key.Len() != aesKeySize {
		t.Fatalf("derived key length %d, want %d", key.Len(), aesKeySize)
	}

	key2, _, err := c.NewKeyFromPassword([]byte("hunter2"), salt, iterations, 0)
	if err != nil {
		t.Fatalf("re-derive: %v", err)
	}
	if !c.CompareKeys(key, key2) {
		t.Fatal("re-deriving with the same iteration count produced a different key")
	}
}
