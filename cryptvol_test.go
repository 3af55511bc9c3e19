package cryptvol

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/absfs/memfs"
)

func TestIntegrationCreateWriteCloseReopenRead(t *testing.T) {
	base, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("memfs.NewFS: %v", err)
	}

	confPath := filepath.Join(os.TempDir(), "cryptvol-test.conf")
	password := []byte("correct horse battery staple")

	vol, err := Init(base, confPath, password, "aes-ctr", 256, 4096)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := vol.MkdirAll("/projects/webapp/assets", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	testFiles := map[string]string{
		"/projects/readme.md":              "project documentation",
		"/projects/webapp/index.html":      "<html>...</html>",
		"/projects/webapp/assets/logo.png": "pretend png bytes",
		"/secret.txt":                      "top secret information",
	}

	for path, content := range testFiles {
		f, err := vol.Create(path)
		if err != nil {
			t.Fatalf("Create(%q): %v", path, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			f.Close()
			t.Fatalf("Write(%q): %v", path, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close(%q): %v", path, err)
		}
	}

	for path, want := range testFiles {
		f, err := vol.Open(path)
		if err != nil {
			t.Fatalf("Open(%q): %v", path, err)
		}
		got, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			t.Fatalf("ReadAll(%q): %v", path, err)
		}
		if string(got) != want {
			t.Errorf("content mismatch for %q: got %q, want %q", path, got, want)
		}
	}

	for path := range testFiles {
		info, err := vol.Stat(path)
		if err != nil {
			t.Fatalf("Stat(%q): %v", path, err)
		}
		if info.IsDir() {
			t.Errorf("%q reported as directory", path)
		}
	}

	if err := vol.Rename("/secret.txt", "/top-secret.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := vol.Stat("/secret.txt"); !IsIOError(err) && !os.IsNotExist(err) {
		t.Error("old filename should no longer be found after rename")
	}
	f, err := vol.Open("/top-secret.txt")
	if err != nil {
		t.Fatalf("Open renamed file: %v", err)
	}
	got, _ := io.ReadAll(f)
	f.Close()
	if string(got) != "top secret information" {
		t.Errorf("renamed file content mismatch: got %q", got)
	}

	if err := vol.Remove("/top-secret.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := vol.Stat("/top-secret.txt"); err == nil {
		t.Error("removed file should not be found")
	}

	// The base filesystem never sees plaintext names.
	if _, err := base.Stat("/projects"); err == nil {
		t.Error("directory name should be encrypted on the base filesystem")
	}
}

func TestIntegrationReopenAfterRemount(t *testing.T) {
	base, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("memfs.NewFS: %v", err)
	}
	confPath := filepath.Join(os.TempDir(), "cryptvol-test-remount.conf")
	password := []byte("hunter2")

	vol1, err := Init(base, confPath, password, "aes-ctr", 256, 4096)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	f, err := vol1.Create("/data.bin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte(i)
	}
	if _, err := f.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	vol2, err := Open(base, confPath, password)
	if err != nil {
		t.Fatalf("Open (remount): %v", err)
	}
	f2, err := vol2.Open("/data.bin")
	if err != nil {
		t.Fatalf("Open(/data.bin): %v", err)
	}
	got, err := io.ReadAll(f2)
	f2.Close()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("size mismatch: got %d, want %d", len(got), len(payload))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d mismatch: got %d, want %d", i, got[i], payload[i])
		}
	}

	if _, err := Open(base, confPath, []byte("wrong password")); err == nil {
		t.Fatal("expected Open with the wrong password to fail")
	}
}
