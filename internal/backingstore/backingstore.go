// Package backingstore adapts an absfs.File into the contentenc.BackingStore
// collaborator the content-encryption layer drives.
package backingstore

import (
	"io"

	"github.com/absfs/absfs"
)

// File wraps one open absfs.File as a contentenc.BackingStore. absfs.File
// exposes pread/pwrite-style ReadAt/WriteAt directly, so this adapter is
// mostly bookkeeping: it turns io.EOF on a short ReadAt into a plain short
// read, matching the contract contentenc's block reader expects.
type File struct {
	base absfs.File
}

// New wraps base as a BackingStore.
func New(base absfs.File) *File {
	return &File{base: base}
}

// ReadAt reads len(buf) bytes at off, returning a short read with a nil
// error at EOF instead of io.EOF.
func (f *File) ReadAt(buf []byte, off int64) (int, error) {
	n, err := f.base.ReadAt(buf, off)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// WriteAt writes buf at off.
func (f *File) WriteAt(buf []byte, off int64) (int, error) {
	return f.base.WriteAt(buf, off)
}

// Truncate resizes the backing file to size bytes.
func (f *File) Truncate(size int64) error {
	return f.base.Truncate(size)
}

// Sync requests a durable write of the backing file's contents.
func (f *File) Sync() error {
	return f.base.Sync()
}

// Size returns the backing file's current size via Stat.
func (f *File) Size() (int64, error) {
	info, err := f.base.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close closes the underlying absfs.File. contentenc never calls this —
// callers that own the absfs.File handle (the root package's file wrapper)
// close it directly after flushing the content layer.
func (f *File) Close() error {
	return f.base.Close()
}
