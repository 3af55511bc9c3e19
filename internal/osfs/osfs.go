// Package osfs is a minimal absfs.FileSystem backed directly by the host
// OS filesystem, rooted at one directory. It exists so cmd/cryptvolctl has
// something concrete to wrap with cryptvol.Open/Init without depending on
// a separate absfs backend module.
package osfs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/absfs/absfs"
)

// FS roots every path at Root before touching the real filesystem.
type FS struct {
	Root string
}

// New returns an FS rooted at root, creating it if necessary.
func New(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FS{Root: root}, nil
}

func (fs *FS) path(name string) string { return filepath.Join(fs.Root, name) }

func (fs *FS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	p := fs.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(p, flag, perm)
}

func (fs *FS) Open(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

func (fs *FS) Create(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

func (fs *FS) Mkdir(name string, perm os.FileMode) error { return os.Mkdir(fs.path(name), perm) }
func (fs *FS) MkdirAll(name string, perm os.FileMode) error {
	return os.MkdirAll(fs.path(name), perm)
}
func (fs *FS) Remove(name string) error    { return os.Remove(fs.path(name)) }
func (fs *FS) RemoveAll(path string) error { return os.RemoveAll(fs.path(path)) }
func (fs *FS) Rename(oldpath, newpath string) error {
	return os.Rename(fs.path(oldpath), fs.path(newpath))
}
func (fs *FS) Stat(name string) (os.FileInfo, error) { return os.Stat(fs.path(name)) }
func (fs *FS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(fs.path(name), mode)
}
func (fs *FS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(fs.path(name), atime, mtime)
}
func (fs *FS) Chown(name string, uid, gid int) error { return os.Chown(fs.path(name), uid, gid) }
func (fs *FS) Truncate(name string, size int64) error {
	return os.Truncate(fs.path(name), size)
}

func (fs *FS) Separator() uint8     { return os.PathSeparator }
func (fs *FS) ListSeparator() uint8 { return os.PathListSeparator }
func (fs *FS) Chdir(dir string) error { return nil }
func (fs *FS) Getwd() (string, error) { return "/", nil }
func (fs *FS) TempDir() string        { return os.TempDir() }
