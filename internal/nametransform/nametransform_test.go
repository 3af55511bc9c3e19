package nametransform

import (
	"testing"

	"github.com/cryptvol/cryptvol/internal/basen"
	"github.com/cryptvol/cryptvol/internal/cipher"
)

func testKeys(t *testing.T) (cipher.Cipher, cipher.Key, cipher.Key) {
	t.Helper()
	alg, ok := cipher.LookupByName("aes-ctr", 32)
	if !ok {
		t.Fatal("aes-ctr not registered")
	}
	c, err := alg.New(make([]byte, 32))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	blockKey, err := c.NewRandomKey()
	if err != nil {
		t.Fatalf("NewRandomKey: %v", err)
	}
	streamKey, err := c.NewRandomKey()
	if err != nil {
		t.Fatalf("NewRandomKey: %v", err)
	}
	return c, blockKey, streamKey
}

func TestNullTransform(t *testing.T) {
	tr := NewNullTransform()
	got, err := tr.Encode("hello.txt", nil)
	if err != nil || got != "hello.txt" {
		t.Fatalf("Encode() = %q, %v", got, err)
	}
}

func TestBlockTransformRoundTrip(t *testing.T) {
	cph, blockKey, _ := testKeys(t)
	tr, err := NewBlockTransform(blockKey, cph, basen.Base64Alphabet, 0)
	if err != nil {
		t.Fatalf("NewBlockTransform: %v", err)
	}

	names := []string{"a", "notes.txt", "a much longer filename with spaces.bin", ".hidden"}
	for _, name := range names {
		encoded, err := tr.Encode(name, nil)
		if err != nil {
			t.Fatalf("Encode(%q): %v", name, err)
		}
		decoded, err := tr.Decode(encoded, nil)
		if err != nil {
			t.Fatalf("Decode(%q): %v", encoded, err)
		}
		if decoded != name {
			t.Errorf("round trip: got %q, want %q", decoded, name)
		}
	}
}

func TestStreamTransformRoundTrip(t *testing.T) {
	cph, _, streamKey := testKeys(t)
	tr := NewStreamTransform(cph, streamKey, basen.Base32Alphabet, 0)

	for _, name := range []string{"x", "report-final-v2.csv"} {
		encoded, err := tr.Encode(name, nil)
		if err != nil {
			t.Fatalf("Encode(%q): %v", name, err)
		}
		decoded, err := tr.Decode(encoded, nil)
		if err != nil {
			t.Fatalf("Decode(%q): %v", encoded, err)
		}
		if decoded != name {
			t.Errorf("round trip: got %q, want %q", decoded, name)
		}
	}
}

func TestChainedIVProducesDistinctCiphertexts(t *testing.T) {
	cph, blockKey, _ := testKeys(t)
	tr, err := NewBlockTransform(blockKey, cph, basen.Base64Alphabet, 0)
	if err != nil {
		t.Fatalf("NewBlockTransform: %v", err)
	}

	chainA := NewIVChain(true, 0)
	encA1, _ := tr.Encode("same-name.txt", chainA)
	encA2, _ := tr.Encode("same-name.txt", chainA)
	if encA1 == encA2 {
		t.Fatal("chained encode of repeated sibling name produced identical ciphertext")
	}

	chainB := NewIVChain(true, 0)
	encB1, _ := tr.Encode("same-name.txt", chainB)
	if encA1 != encB1 {
		t.Fatal("two fresh chains starting at the same seed diverged on the first name")
	}
}

func TestEncodeDecodePathChained(t *testing.T) {
	cph, blockKey, _ := testKeys(t)
	tr, err := NewBlockTransform(blockKey, cph, basen.Base64Alphabet, 0)
	if err != nil {
		t.Fatalf("NewBlockTransform: %v", err)
	}

	path := "/home/user/docs/report.txt"
	encodeChain := NewIVChain(true, 0)
	encoded, err := EncodePath(tr, path, encodeChain)
	if err != nil {
		t.Fatalf("EncodePath: %v", err)
	}

	decodeChain := NewIVChain(true, 0)
	decoded, err := DecodePath(tr, encoded, decodeChain)
	if err != nil {
		t.Fatalf("DecodePath: %v", err)
	}
	if decoded != path {
		t.Fatalf("got %q, want %q", decoded, path)
	}
}
