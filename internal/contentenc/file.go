package contentenc

import (
	"fmt"
	"sync"

	"github.com/cryptvol/cryptvol/internal/cipher"
)

// state is PlainFile's per-handle state machine: CLOSED -> OPENING -> OPEN
// -> CLOSING -> CLOSED, with OPEN able to fall into OpenDegraded on any
// backing I/O or integrity error.
type state int

const (
	Closed state = iota
	Opening
	Open
	Closing
	OpenDegraded
)

func (s state) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case OpenDegraded:
		return "open-degraded"
	default:
		return "unknown"
	}
}

// PlainFile presents a byte-addressable plaintext view over one ciphertext
// BackingStore, per spec.md's §4.D block-mapped file layer. All exported
// methods hold mu for their entire duration: crypto work happens under the
// lock so a truncate, write, and read can never interleave partial block
// updates.
type PlainFile struct {
	mu sync.Mutex

	store  BackingStore
	cph    cipher.Cipher
	key    cipher.Key
	layout Layout

	state       state
	degradedErr error

	fileIV    uint64
	plainSize int64
	dirty     bool // plainSize/fileIV changed since the header was last flushed

	parallel Parallelism
}

// Open opens a ciphertext file through store, reading (or, for an empty
// backing file, synthesizing) its header per spec.md's Open algorithm.
func Open(store BackingStore, cph cipher.Cipher, key cipher.Key, layout Layout) (*PlainFile, error) {
	f := &PlainFile{store: store, cph: cph, key: key, layout: layout, state: Opening, parallel: DefaultParallelism()}

	cipherSize, err := store.Size()
	if err != nil {
		return nil, fmt.Errorf("contentenc: stat backing store: %w", err)
	}

	switch {
	case !layout.UniqueIV:
		f.fileIV = 0
		f.plainSize, err = layout.PlainSizeFromCiphertextSize(cipherSize)
		if err != nil {
			return nil, err
		}

	case cipherSize == 0:
		var ivBytes [8]byte
		if err := cph.Randomize(ivBytes[:]); err != nil {
			return nil, fmt.Errorf("contentenc: generating file IV: %w", err)
		}
		f.fileIV = beUint64(ivBytes[:])
		f.plainSize = 0
		f.dirty = true // header not yet on disk

	default:
		header := make([]byte, layout.HeaderSize())
		n, err := store.ReadAt(header, 0)
		if err != nil {
			return nil, fmt.Errorf("contentenc: reading header: %w", err)
		}
		if n != len(header) {
			return nil, fmt.Errorf("%w: short header read", ErrCorrupt)
		}
		fileIV, plainSize, err := decryptHeader(cph, key, layout, header)
		if err != nil {
			return nil, err
		}
		f.fileIV = fileIV
		f.plainSize = plainSize
	}

	f.state = Open
	return f, nil
}

func (f *PlainFile) checkOpen() error {
	switch f.state {
	case Open:
		return nil
	case OpenDegraded:
		return f.degradedErr
	default:
		return ErrClosed
	}
}

func (f *PlainFile) degrade(err error) error {
	f.state = OpenDegraded
	f.degradedErr = err
	return err
}

// Size returns the cached plaintext size.
func (f *PlainFile) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plainSize
}

// currentBlockPlainLen is the plaintext length of block i as it stands on
// disk right now: BlockSize for any interior block, the short tail length
// for the last block, 0 if the block doesn't exist yet.
func (f *PlainFile) currentBlockPlainLen(i int64) int {
	if f.plainSize == 0 {
		return 0
	}
	last := f.layout.BlockIndex(f.plainSize - 1)
	switch {
	case i < last:
		return f.layout.BlockSize
	case i == last:
		return f.layout.LastBlockPayloadLen(f.plainSize)
	default:
		return 0
	}
}

func (f *PlainFile) readBlockPlain(i int64) ([]byte, error) {
	oldLen := f.currentBlockPlainLen(i)
	if oldLen == 0 {
		return nil, nil
	}
	onDiskLen := f.layout.M() + oldLen
	buf := make([]byte, onDiskLen)
	n, err := f.store.ReadAt(buf, f.layout.BlockCiphertextOffset(i))
	if err != nil {
		return nil, fmt.Errorf("contentenc: reading block %d: %w", i, err)
	}
	if n != onDiskLen {
		return nil, fmt.Errorf("%w: short read on block %d", ErrCorrupt, i)
	}
	return DecryptBlock(f.cph, f.key, f.layout, f.fileIV, uint64(i), buf, oldLen == f.layout.BlockSize)
}

func (f *PlainFile) writeBlockPlain(i int64, plaintext []byte) error {
	onDisk, err := EncryptBlock(f.cph, f.key, f.layout, f.fileIV, uint64(i), plaintext, len(plaintext) == f.layout.BlockSize)
	if err != nil {
		return err
	}
	n, err := f.store.WriteAt(onDisk, f.layout.BlockCiphertextOffset(i))
	if err != nil {
		return fmt.Errorf("contentenc: writing block %d: %w", i, err)
	}
	if n != len(onDisk) {
		return fmt.Errorf("contentenc: short write on block %d", i)
	}
	return nil
}

// Read implements spec.md's Read algorithm.
func (f *PlainFile) Read(buf []byte, offset int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if offset >= f.plainSize || len(buf) == 0 {
		return 0, nil
	}
	end := offset + int64(len(buf))
	if end > f.plainSize {
		end = f.plainSize
	}

	B := int64(f.layout.BlockSize)
	startBlock := f.layout.BlockIndex(offset)
	endBlock := f.layout.BlockIndex(end - 1)

	readOne := func(i int64) error {
		plaintext, err := f.readBlockPlain(i)
		if err != nil {
			return err
		}
		blockStart := i * B
		readStart := int64(0)
		if offset > blockStart {
			readStart = offset - blockStart
		}
		readEnd := int64(len(plaintext))
		if end < blockStart+int64(len(plaintext)) {
			readEnd = end - blockStart
		}
		if readStart >= readEnd {
			return nil
		}
		copy(buf[blockStart+readStart-offset:], plaintext[readStart:readEnd])
		return nil
	}

	if err := f.parallel.forEachBlock(blockRange(startBlock, endBlock), readOne); err != nil {
		return 0, f.degrade(err)
	}
	return int(end - offset), nil
}

// writeRange performs the read-modify-write loop shared by Write and
// truncate-growth: fully overwritten blocks bypass the read, partial head
// and tail blocks are read, decrypted, and merged with data before being
// re-encrypted and written back.
func (f *PlainFile) writeRange(offset int64, data []byte) error {
	if len(data) == 0 {
		if offset > f.plainSize {
			f.plainSize = offset
			f.dirty = true
		}
		return nil
	}

	B := int64(f.layout.BlockSize)
	end := offset + int64(len(data))
	startBlock := f.layout.BlockIndex(offset)
	endBlock := f.layout.BlockIndex(end - 1)

	writeOne := func(i int64) error {
		blockStart := i * B
		writeStart := int64(0)
		if offset > blockStart {
			writeStart = offset - blockStart
		}
		writeEnd := B
		if end < blockStart+B {
			writeEnd = end - blockStart
		}

		oldLen := f.currentBlockPlainLen(i)
		newLen := oldLen
		if int(writeEnd) > newLen {
			newLen = int(writeEnd)
		}

		var plaintext []byte
		fullyOverwritten := writeStart == 0 && int(writeEnd) >= oldLen
		if fullyOverwritten {
			plaintext = make([]byte, newLen)
		} else {
			existing, err := f.readBlockPlain(i)
			if err != nil {
				return err
			}
			plaintext = make([]byte, newLen)
			copy(plaintext, existing)
		}

		srcStart := blockStart + writeStart - offset
		copy(plaintext[writeStart:writeEnd], data[srcStart:srcStart+(writeEnd-writeStart)])

		return f.writeBlockPlain(i, plaintext)
	}

	if err := f.parallel.forEachBlock(blockRange(startBlock, endBlock), writeOne); err != nil {
		return f.degrade(err)
	}

	if end > f.plainSize {
		f.plainSize = end
	}
	f.dirty = true
	return nil
}

// Write implements spec.md's Write algorithm, including zero-filled
// extension when offset lands past the current plaintext size.
func (f *PlainFile) Write(buf []byte, offset int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if offset > f.plainSize {
		if err := f.writeRange(f.plainSize, make([]byte, offset-f.plainSize)); err != nil {
			return 0, err
		}
	}
	if err := f.writeRange(offset, buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (f *PlainFile) truncateDown(target int64) error {
	if target == 0 {
		if err := f.store.Truncate(int64(f.layout.HeaderSize())); err != nil {
			return err
		}
		f.plainSize = 0
		f.dirty = true
		return nil
	}

	lastBlock := f.layout.BlockIndex(target - 1)
	newLen := int(target - lastBlock*int64(f.layout.BlockSize))

	existing, err := f.readBlockPlain(lastBlock)
	if err != nil {
		return err
	}
	plaintext := make([]byte, newLen)
	copy(plaintext, existing[:min(len(existing), newLen)])
	if err := f.writeBlockPlain(lastBlock, plaintext); err != nil {
		return err
	}

	newCipherSize := f.layout.BlockCiphertextOffset(lastBlock) + int64(f.layout.M()) + int64(newLen)
	if err := f.store.Truncate(newCipherSize); err != nil {
		return err
	}
	f.plainSize = target
	f.dirty = true
	return nil
}

// Truncate implements spec.md's Truncate algorithm for grow and shrink.
func (f *PlainFile) Truncate(target int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkOpen(); err != nil {
		return err
	}
	switch {
	case target == f.plainSize:
		return nil
	case target < f.plainSize:
		if err := f.truncateDown(target); err != nil {
			return f.degrade(err)
		}
	default:
		if err := f.writeRange(f.plainSize, make([]byte, target-f.plainSize)); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFile) flushHeader() error {
	if !f.layout.UniqueIV {
		return nil
	}
	header, err := encryptHeader(f.cph, f.key, f.layout, f.fileIV, f.plainSize)
	if err != nil {
		return err
	}
	n, err := f.store.WriteAt(header, 0)
	if err != nil {
		return fmt.Errorf("contentenc: writing header: %w", err)
	}
	if n != len(header) {
		return fmt.Errorf("contentenc: short header write")
	}
	return nil
}

// Sync flushes the cached plaintext size (and file IV, for a brand-new
// file) into the header block, then requests a durable write.
func (f *PlainFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkOpen(); err != nil {
		return err
	}
	if f.dirty {
		if err := f.flushHeader(); err != nil {
			return f.degrade(err)
		}
	}
	if err := f.store.Sync(); err != nil {
		return f.degrade(err)
	}
	f.dirty = false
	return nil
}

// Close flushes any pending header update and transitions to Closed. Close
// is legal from OpenDegraded and always succeeds in moving the state to
// Closed, even if the final flush fails; the flush error is still returned.
func (f *PlainFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Closed {
		return nil
	}
	f.state = Closing

	var err error
	if f.dirty {
		err = f.flushHeader()
	}
	if serr := f.store.Sync(); serr != nil && err == nil {
		err = serr
	}
	f.state = Closed
	return err
}

func beUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
