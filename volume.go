// Package cryptvol implements a transparent, stackable encrypting
// filesystem layer over any absfs.FileSystem: file contents are
// block-encrypted and MAC'd per spec.md §4.D, and names are reversibly
// encoded per spec.md §4.C, so the base filesystem never sees plaintext.
package cryptvol

import (
	"fmt"
	"os"
	"time"

	"github.com/absfs/absfs"

	"github.com/cryptvol/cryptvol/internal/backingstore"
	"github.com/cryptvol/cryptvol/internal/basen"
	"github.com/cryptvol/cryptvol/internal/cipher"
	"github.com/cryptvol/cryptvol/internal/contentenc"
	"github.com/cryptvol/cryptvol/internal/nametransform"
	"github.com/cryptvol/cryptvol/internal/volumeconfig"
)

const (
	contentKeyPurpose = "cryptvol-content"
	nameKeyPurpose    = "cryptvol-name"
	wrapKeyPurpose    = "cryptvol-wrap"
	defaultTargetMs   = 500
)

// Volume implements absfs.FileSystem, generalizing the teacher's EncryptFS
// to spec.md's block-mapped content layer and chained-IV name codec.
type Volume struct {
	base   absfs.FileSystem
	config *volumeconfig.VolumeConfig

	contentCipher cipher.Cipher
	contentKey    cipher.Key
	layout        contentenc.Layout

	names nametransform.Transform
}

// Open mounts an existing volume: it loads confPath, re-derives the
// wrapping key from password, unwraps the content key, and wires up the
// name codec, all per spec.md §6.1/§6.2.
func Open(base absfs.FileSystem, confPath string, password []byte) (*Volume, error) {
	conf, err := volumeconfig.Load(confPath)
	if err != nil {
		return nil, newError(KindIO, "open-volume", confPath, err)
	}
	return newVolume(base, conf, password)
}

// Init creates a brand-new volume: a fresh content key, a config written to
// confPath, ready to be mounted with Open. cipherName selects the registered
// content cipher family (e.g. "aes-ctr"); the name codec is always the
// EME block transform.
func Init(base absfs.FileSystem, confPath string, password []byte, cipherName string, keySizeBits, blockSizeBytes int) (*Volume, error) {
	alg, ok := cipher.LookupByName(cipherName, keySizeBits/8)
	if !ok {
		return nil, newError(KindUnsupported, "init-volume", confPath, fmt.Errorf("cipher %q/%d-bit not registered", cipherName, keySizeBits))
	}
	cph, err := alg.New(make([]byte, keySizeBits/8))
	if err != nil {
		return nil, newError(KindInvalid, "init-volume", confPath, err)
	}

	contentKey, err := cph.NewRandomKey()
	if err != nil {
		return nil, newError(KindEntropy, "init-volume", confPath, err)
	}

	salt := make([]byte, 32)
	if err := cph.Randomize(salt); err != nil {
		return nil, newError(KindEntropy, "init-volume", confPath, err)
	}

	masterKey, _, err := cph.NewKeyFromPassword(password, salt, 0, defaultTargetMs)
	if err != nil {
		return nil, newError(KindBadKey, "init-volume", confPath, err)
	}
	wrapKey, err := cipher.DeriveSubkey(masterKey.Bytes(), wrapKeyPurpose, cph.KeySize())
	if err != nil {
		return nil, newError(KindBadKey, "init-volume", confPath, err)
	}
	wrapped, err := cph.WriteKey(contentKey, wrapKey)
	if err != nil {
		return nil, newError(KindBadKey, "init-volume", confPath, err)
	}

	conf := volumeconfig.New(alg.Descriptor.String(), "block/1/0", keySizeBits, blockSizeBytes)
	conf.SetSalt(salt)
	conf.SetEncryptedKey(wrapped)

	if err := volumeconfig.Save(confPath, conf); err != nil {
		return nil, newError(KindIO, "init-volume", confPath, err)
	}

	return newVolume(base, conf, password)
}

func newVolume(base absfs.FileSystem, conf *volumeconfig.VolumeConfig, password []byte) (*Volume, error) {
	alg, ok := cipher.LookupByName(parseFamilyName(conf.CipherDescriptor), conf.KeySizeBits/8)
	if !ok {
		return nil, newError(KindUnsupported, "mount", "", fmt.Errorf("cipher descriptor %q not registered", conf.CipherDescriptor))
	}
	cph, err := alg.New(make([]byte, conf.KeySizeBits/8))
	if err != nil {
		return nil, newError(KindInvalid, "mount", "", err)
	}

	salt, err := conf.DecodedSalt()
	if err != nil {
		return nil, newError(KindInvalid, "mount", "", err)
	}
	wrapped, err := conf.DecodedKey()
	if err != nil {
		return nil, newError(KindInvalid, "mount", "", err)
	}

	masterKey, _, err := cph.NewKeyFromPassword(password, salt, 0, defaultTargetMs)
	if err != nil {
		return nil, newError(KindBadKey, "mount", "", err)
	}
	wrapKey, err := cipher.DeriveSubkey(masterKey.Bytes(), wrapKeyPurpose, cph.KeySize())
	if err != nil {
		return nil, newError(KindBadKey, "mount", "", err)
	}
	contentKey, err := cph.ReadKey(wrapped, wrapKey, true)
	if err != nil {
		return nil, newError(KindBadKey, "mount", "", fmt.Errorf("wrong password or corrupted key: %w", err))
	}

	layout := contentenc.Layout{
		BlockSize:    conf.BlockSizeBytes,
		MACSize:      conf.BlockMACBytes,
		RandSize:     conf.BlockMACRandBytes,
		UniqueIV:     conf.UniqueIV,
		HeaderHasMAC: conf.HeaderHasMAC(),
	}

	nameKey, err := cipher.DeriveSubkey(masterKey.Bytes(), nameKeyPurpose, cph.KeySize())
	if err != nil {
		return nil, newError(KindBadKey, "mount", "", err)
	}
	names, err := nametransform.NewBlockTransform(nameKey, cph, basen.Base64Alphabet, 0)
	if err != nil {
		return nil, newError(KindInvalid, "mount", "", err)
	}

	return &Volume{
		base:          base,
		config:        conf,
		contentCipher: cph,
		contentKey:    contentKey,
		layout:        layout,
		names:         names,
	}, nil
}

// Rewrap changes a volume's password without touching any data block: it
// re-derives the wrapping key from oldPassword, unwraps the content key,
// re-derives a new wrapping key from newPassword, re-wraps, and rewrites
// confPath. This mirrors gocryptfs's real -passwd mode, which never rewrites
// file contents since the content key itself never changes.
func Rewrap(confPath string, oldPassword, newPassword []byte) error {
	conf, err := volumeconfig.Load(confPath)
	if err != nil {
		return newError(KindIO, "passwd", confPath, err)
	}

	alg, ok := cipher.LookupByName(parseFamilyName(conf.CipherDescriptor), conf.KeySizeBits/8)
	if !ok {
		return newError(KindUnsupported, "passwd", confPath, fmt.Errorf("cipher descriptor %q not registered", conf.CipherDescriptor))
	}
	cph, err := alg.New(make([]byte, conf.KeySizeBits/8))
	if err != nil {
		return newError(KindInvalid, "passwd", confPath, err)
	}

	salt, err := conf.DecodedSalt()
	if err != nil {
		return newError(KindInvalid, "passwd", confPath, err)
	}
	wrapped, err := conf.DecodedKey()
	if err != nil {
		return newError(KindInvalid, "passwd", confPath, err)
	}

	oldMasterKey, _, err := cph.NewKeyFromPassword(oldPassword, salt, 0, defaultTargetMs)
	if err != nil {
		return newError(KindBadKey, "passwd", confPath, err)
	}
	oldWrapKey, err := cipher.DeriveSubkey(oldMasterKey.Bytes(), wrapKeyPurpose, cph.KeySize())
	if err != nil {
		return newError(KindBadKey, "passwd", confPath, err)
	}
	contentKey, err := cph.ReadKey(wrapped, oldWrapKey, true)
	if err != nil {
		return newError(KindBadKey, "passwd", confPath, fmt.Errorf("wrong password or corrupted key: %w", err))
	}

	newSalt := make([]byte, len(salt))
	if err := cph.Randomize(newSalt); err != nil {
		return newError(KindEntropy, "passwd", confPath, err)
	}
	newMasterKey, _, err := cph.NewKeyFromPassword(newPassword, newSalt, 0, defaultTargetMs)
	if err != nil {
		return newError(KindBadKey, "passwd", confPath, err)
	}
	newWrapKey, err := cipher.DeriveSubkey(newMasterKey.Bytes(), wrapKeyPurpose, cph.KeySize())
	if err != nil {
		return newError(KindBadKey, "passwd", confPath, err)
	}
	newWrapped, err := cph.WriteKey(contentKey, newWrapKey)
	if err != nil {
		return newError(KindBadKey, "passwd", confPath, err)
	}

	conf.SetSalt(newSalt)
	conf.SetEncryptedKey(newWrapped)
	if err := volumeconfig.Save(confPath, conf); err != nil {
		return newError(KindIO, "passwd", confPath, err)
	}
	return nil
}

func parseFamilyName(descriptor string) string {
	for i, r := range descriptor {
		if r == '/' {
			return descriptor[:i]
		}
	}
	return descriptor
}

func (v *Volume) translate(plaintext string) (string, error) {
	chain := nametransform.NewIVChain(v.config.ChainedNameIV, 0)
	return nametransform.EncodePath(v.names, plaintext, chain)
}

func (v *Volume) untranslate(ciphertext string) (string, error) {
	chain := nametransform.NewIVChain(v.config.ChainedNameIV, 0)
	return nametransform.DecodePath(v.names, ciphertext, chain)
}

func (v *Volume) Separator() uint8     { return v.base.Separator() }
func (v *Volume) ListSeparator() uint8 { return v.base.ListSeparator() }
func (v *Volume) TempDir() string      { return v.base.TempDir() }

func (v *Volume) Chdir(dir string) error {
	enc, err := v.translate(dir)
	if err != nil {
		return newError(KindInvalid, "chdir", dir, err)
	}
	return v.base.Chdir(enc)
}

func (v *Volume) Getwd() (string, error) {
	enc, err := v.base.Getwd()
	if err != nil {
		return "", newError(KindIO, "getwd", "", err)
	}
	return v.untranslate(enc)
}

func (v *Volume) Open(name string) (absfs.File, error) {
	return v.OpenFile(name, os.O_RDONLY, 0)
}

func (v *Volume) Create(name string) (absfs.File, error) {
	return v.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

func (v *Volume) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	enc, err := v.translate(name)
	if err != nil {
		return nil, newError(KindInvalid, "open", name, err)
	}
	base, err := v.base.OpenFile(enc, flag, perm)
	if err != nil {
		return nil, newError(KindIO, "open", name, err)
	}

	store := backingstore.New(base)
	plain, err := contentenc.Open(store, v.contentCipher, v.contentKey, v.layout)
	if err != nil {
		base.Close()
		return nil, newError(KindIntegrity, "open", name, err)
	}
	return newFile(name, base, plain), nil
}

func (v *Volume) Mkdir(name string, perm os.FileMode) error {
	enc, err := v.translate(name)
	if err != nil {
		return newError(KindInvalid, "mkdir", name, err)
	}
	return v.base.Mkdir(enc, perm)
}

func (v *Volume) MkdirAll(name string, perm os.FileMode) error {
	enc, err := v.translate(name)
	if err != nil {
		return newError(KindInvalid, "mkdirall", name, err)
	}
	return v.base.MkdirAll(enc, perm)
}

func (v *Volume) Remove(name string) error {
	enc, err := v.translate(name)
	if err != nil {
		return newError(KindInvalid, "remove", name, err)
	}
	return v.base.Remove(enc)
}

func (v *Volume) RemoveAll(path string) error {
	enc, err := v.translate(path)
	if err != nil {
		return newError(KindInvalid, "removeall", path, err)
	}
	return v.base.RemoveAll(enc)
}

func (v *Volume) Rename(oldpath, newpath string) error {
	oldEnc, err := v.translate(oldpath)
	if err != nil {
		return newError(KindInvalid, "rename", oldpath, err)
	}
	newEnc, err := v.translate(newpath)
	if err != nil {
		return newError(KindInvalid, "rename", newpath, err)
	}
	return v.base.Rename(oldEnc, newEnc)
}

func (v *Volume) Stat(name string) (os.FileInfo, error) {
	enc, err := v.translate(name)
	if err != nil {
		return nil, newError(KindInvalid, "stat", name, err)
	}
	info, err := v.base.Stat(enc)
	if err != nil {
		return nil, newError(KindIO, "stat", name, err)
	}
	if info.IsDir() {
		return info, nil
	}
	fi, err := newFileInfo(info, name, v.layout)
	if err != nil {
		return nil, newError(KindIntegrity, "stat", name, err)
	}
	return fi, nil
}

func (v *Volume) Chmod(name string, mode os.FileMode) error {
	enc, err := v.translate(name)
	if err != nil {
		return newError(KindInvalid, "chmod", name, err)
	}
	return v.base.Chmod(enc, mode)
}

func (v *Volume) Chtimes(name string, atime, mtime time.Time) error {
	enc, err := v.translate(name)
	if err != nil {
		return newError(KindInvalid, "chtimes", name, err)
	}
	return v.base.Chtimes(enc, atime, mtime)
}

func (v *Volume) Chown(name string, uid, gid int) error {
	enc, err := v.translate(name)
	if err != nil {
		return newError(KindInvalid, "chown", name, err)
	}
	return v.base.Chown(enc, uid, gid)
}

func (v *Volume) Truncate(name string, size int64) error {
	f, err := v.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(size)
}
