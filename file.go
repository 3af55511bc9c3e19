package cryptvol

import (
	"fmt"
	"io"
	"os"

	"github.com/absfs/absfs"

	"github.com/cryptvol/cryptvol/internal/contentenc"
)

// file implements absfs.File over a contentenc.PlainFile, generalizing the
// teacher's encryptedFile wrapper (which cached the whole plaintext in
// memory) to the block-mapped layer: Read/Write/ReadAt/WriteAt all go
// straight through to PlainFile without holding a full-file buffer.
type file struct {
	name   string
	base   absfs.File
	plain  *contentenc.PlainFile
	offset int64
}

func newFile(name string, base absfs.File, plain *contentenc.PlainFile) *file {
	return &file{name: name, base: base, plain: plain}
}

func (f *file) Name() string { return f.name }

func (f *file) Read(p []byte) (int, error) {
	n, err := f.plain.Read(p, f.offset)
	f.offset += int64(n)
	if err != nil {
		return n, newError(KindIntegrity, "read", f.name, err)
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (f *file) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.plain.Read(p, off)
	if err != nil {
		return n, newError(KindIntegrity, "readat", f.name, err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *file) Write(p []byte) (int, error) {
	n, err := f.plain.Write(p, f.offset)
	f.offset += int64(n)
	if err != nil {
		return n, newError(KindIO, "write", f.name, err)
	}
	return n, nil
}

func (f *file) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.plain.Write(p, off)
	if err != nil {
		return n, newError(KindIO, "writeat", f.name, err)
	}
	return n, nil
}

func (f *file) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *file) Seek(offset int64, whence int) (int64, error) {
	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = f.offset + offset
	case io.SeekEnd:
		newOffset = f.plain.Size() + offset
	default:
		return 0, newError(KindInvalid, "seek", f.name, fmt.Errorf("invalid whence %d", whence))
	}
	if newOffset < 0 {
		return 0, newError(KindInvalid, "seek", f.name, fmt.Errorf("negative position"))
	}
	f.offset = newOffset
	return f.offset, nil
}

func (f *file) Close() error {
	if err := f.plain.Close(); err != nil {
		f.base.Close()
		return newError(KindIO, "close", f.name, err)
	}
	return f.base.Close()
}

func (f *file) Sync() error {
	if err := f.plain.Sync(); err != nil {
		return newError(KindIO, "sync", f.name, err)
	}
	return f.base.Sync()
}

func (f *file) Truncate(size int64) error {
	if err := f.plain.Truncate(size); err != nil {
		return newError(KindIO, "truncate", f.name, err)
	}
	return nil
}

func (f *file) Stat() (os.FileInfo, error) {
	info, err := f.base.Stat()
	if err != nil {
		return nil, newError(KindIO, "stat", f.name, err)
	}
	return &fileInfo{FileInfo: info, name: f.name, plainSize: f.plain.Size()}, nil
}

func (f *file) Readdir(n int) ([]os.FileInfo, error) {
	return f.base.Readdir(n)
}

func (f *file) Readdirnames(n int) ([]string, error) {
	return f.base.Readdirnames(n)
}

// fileInfo overrides the base os.FileInfo's Size and Name with the
// plaintext logical name and cached plaintext size.
type fileInfo struct {
	os.FileInfo
	name      string
	plainSize int64
}

func newFileInfo(base os.FileInfo, name string, layout contentenc.Layout) (*fileInfo, error) {
	plainSize, err := layout.PlainSizeFromCiphertextSize(base.Size())
	if err != nil {
		return nil, err
	}
	return &fileInfo{FileInfo: base, name: name, plainSize: plainSize}, nil
}

func (fi *fileInfo) Name() string { return baseName(fi.name) }
func (fi *fileInfo) Size() int64  { return fi.plainSize }

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
