package contentenc

import (
	"bytes"
	"testing"

	"github.com/cryptvol/cryptvol/internal/cipher"
)

// memStore is a trivial in-memory BackingStore for exercising PlainFile
// without touching a real filesystem.
type memStore struct {
	buf []byte
}

func (m *memStore) ReadAt(buf []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, nil
	}
	n := copy(buf, m.buf[off:])
	return n, nil
}

func (m *memStore) WriteAt(buf []byte, off int64) (int, error) {
	end := off + int64(len(buf))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:end], buf)
	return len(buf), nil
}

func (m *memStore) Truncate(size int64) error {
	if size <= int64(len(m.buf)) {
		m.buf = m.buf[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, m.buf)
	m.buf = grown
	return nil
}

func (m *memStore) Sync() error { return nil }

func (m *memStore) Size() (int64, error) { return int64(len(m.buf)), nil }

func testCipher(t *testing.T) (cipher.Cipher, cipher.Key) {
	t.Helper()
	alg, ok := cipher.LookupByName("aes-ctr", 32)
	if !ok {
		t.Fatal("aes-ctr not registered")
	}
	c, err := alg.New(bytes.Repeat([]byte{0x11}, 32))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key, err := c.NewRandomKey()
	if err != nil {
		t.Fatalf("NewRandomKey: %v", err)
	}
	return c, key
}

func testLayout() Layout {
	return Layout{BlockSize: 4096, MACSize: 8, RandSize: 16, UniqueIV: true, HeaderHasMAC: true}
}

func TestPlainFileRoundTripLarge(t *testing.T) {
	cph, key := testCipher(t)
	layout := testLayout()
	store := &memStore{}

	f, err := Open(store, cph, key, layout)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	data := make([]byte, 1<<20+37) // past 1 MiB, odd tail
	for i := range data {
		data[i] = byte(i * 7)
	}
	if _, err := f.Write(data, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	readBack := make([]byte, len(data))
	n, err := f.Read(readBack, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(data) {
		t.Fatalf("Read returned %d bytes, want %d", n, len(data))
	}
	if !bytes.Equal(readBack, data) {
		t.Fatal("round trip mismatch")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen against the same backing store and verify persistence.
	f2, err := Open(store, cph, key, layout)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if f2.Size() != int64(len(data)) {
		t.Fatalf("reopened size = %d, want %d", f2.Size(), len(data))
	}
	readBack2 := make([]byte, len(data))
	if _, err := f2.Read(readBack2, 0); err != nil {
		t.Fatalf("Read after reopen: %v", err)
	}
	if !bytes.Equal(readBack2, data) {
		t.Fatal("round trip mismatch after reopen")
	}
}

func TestPlainFilePartialBlockWrite(t *testing.T) {
	cph, key := testCipher(t)
	layout := testLayout()
	store := &memStore{}

	f, err := Open(store, cph, key, layout)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	full := bytes.Repeat([]byte{0xaa}, layout.BlockSize*2)
	if _, err := f.Write(full, 0); err != nil {
		t.Fatalf("initial write: %v", err)
	}

	// Overwrite a few bytes straddling the boundary between block 0 and 1.
	patch := []byte{1, 2, 3, 4, 5, 6}
	patchOff := int64(layout.BlockSize - 3)
	if _, err := f.Write(patch, patchOff); err != nil {
		t.Fatalf("patch write: %v", err)
	}

	want := append([]byte(nil), full...)
	copy(want[patchOff:], patch)

	got := make([]byte, len(want))
	if _, err := f.Read(got, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("partial block write did not merge correctly with surrounding data")
	}
}

func TestPlainFileMACTamperDetected(t *testing.T) {
	cph, key := testCipher(t)
	layout := testLayout()
	store := &memStore{}

	f, err := Open(store, cph, key, layout)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.Write(bytes.Repeat([]byte{0x55}, layout.BlockSize), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	// Flip a bit inside the first data block's ciphertext payload.
	tamperAt := layout.HeaderSize() + layout.M() + 10
	store.buf[tamperAt] ^= 0xff

	buf := make([]byte, layout.BlockSize)
	if _, err := f.Read(buf, 0); err == nil {
		t.Fatal("expected integrity error on tampered block")
	}
}

func TestPlainFileTruncateShrinkThenGrow(t *testing.T) {
	cph, key := testCipher(t)
	layout := testLayout()
	store := &memStore{}

	f, err := Open(store, cph, key, layout)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	data := bytes.Repeat([]byte{0x77}, layout.BlockSize+500)
	if _, err := f.Write(data, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	shrinkTo := int64(layout.BlockSize - 100)
	if err := f.Truncate(shrinkTo); err != nil {
		t.Fatalf("Truncate shrink: %v", err)
	}
	if f.Size() != shrinkTo {
		t.Fatalf("size after shrink = %d, want %d", f.Size(), shrinkTo)
	}

	growTo := shrinkTo + 1000
	if err := f.Truncate(growTo); err != nil {
		t.Fatalf("Truncate grow: %v", err)
	}
	if f.Size() != growTo {
		t.Fatalf("size after grow = %d, want %d", f.Size(), growTo)
	}

	got := make([]byte, growTo)
	if _, err := f.Read(got, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got[:shrinkTo], data[:shrinkTo]) {
		t.Fatal("data before truncation point was altered")
	}
	for i := shrinkTo; i < growTo; i++ {
		if got[i] != 0 {
			t.Fatalf("byte %d after grow = %d, want 0 (zero-filled extension)", i, got[i])
		}
	}
}

func TestPlainFileWritePastEOFZeroFills(t *testing.T) {
	cph, key := testCipher(t)
	layout := testLayout()
	store := &memStore{}

	f, err := Open(store, cph, key, layout)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	gapStart := int64(layout.BlockSize + 200)
	tail := []byte("tail bytes")
	if _, err := f.Write(tail, gapStart); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if f.Size() != gapStart+int64(len(tail)) {
		t.Fatalf("size = %d, want %d", f.Size(), gapStart+int64(len(tail)))
	}

	got := make([]byte, gapStart)
	if _, err := f.Read(got, 0); err != nil {
		t.Fatalf("Read gap: %v", err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("gap byte %d = %d, want 0", i, b)
		}
	}
}

func TestPlainFileNoUniqueIVDerivesSizeFromCiphertext(t *testing.T) {
	cph, key := testCipher(t)
	layout := Layout{BlockSize: 4096, MACSize: 0, RandSize: 0, UniqueIV: false}
	store := &memStore{}

	f, err := Open(store, cph, key, layout)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data := bytes.Repeat([]byte{0x09}, layout.BlockSize+17)
	if _, err := f.Write(data, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f2, err := Open(store, cph, key, layout)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if f2.Size() != int64(len(data)) {
		t.Fatalf("derived size = %d, want %d", f2.Size(), len(data))
	}
}
