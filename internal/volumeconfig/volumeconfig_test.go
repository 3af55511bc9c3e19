package volumeconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	c := New("aes-ctr/1/0", "block-eme/1/0", 256, 4096)
	c.SetSalt([]byte("0123456789abcdef"))
	c.SetEncryptedKey([]byte("encrypted-key-blob-placeholder.."))

	dir := t.TempDir()
	path := filepath.Join(dir, "cryptvol.conf")

	if err := Save(path, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.CipherDescriptor != c.CipherDescriptor || loaded.NameDescriptor != c.NameDescriptor {
		t.Fatalf("descriptor mismatch: got %+v, want %+v", loaded, c)
	}
	if loaded.BlockSizeBytes != c.BlockSizeBytes || loaded.KeySizeBits != c.KeySizeBits {
		t.Fatalf("geometry mismatch: got %+v, want %+v", loaded, c)
	}
	if !loaded.HeaderHasMAC() {
		t.Fatal("expected HeaderHasMAC to be true with default block MAC settings")
	}

	key, err := loaded.DecodedKey()
	if err != nil {
		t.Fatalf("DecodedKey: %v", err)
	}
	if !bytes.Equal(key, []byte("encrypted-key-blob-placeholder..")) {
		t.Fatal("decoded key blob does not round trip")
	}

	// Re-saving should be byte-identical (stable field order, no timestamps).
	path2 := filepath.Join(dir, "cryptvol2.conf")
	if err := Save(path2, loaded); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	a, _ := os.ReadFile(path)
	b, _ := os.ReadFile(path2)
	if !bytes.Equal(a, b) {
		t.Fatal("re-saved config is not byte-identical to the original")
	}
}

func TestLoadRejectsBadBlockMACBytes(t *testing.T) {
	c := New("aes-ctr/1/0", "block-eme/1/0", 256, 4096)
	c.BlockMACBytes = 3
	dir := t.TempDir()
	path := filepath.Join(dir, "cryptvol.conf")
	if err := Save(path, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to reject an invalid block_mac_bytes value")
	}
}
