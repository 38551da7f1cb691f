package vfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	fsys := NewMemFS()
	if err := fsys.AddFile("/f.txt", "old"); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	if err := WriteFileAtomic(fsys, "/f.txt", []byte("new"), 0644, "tag1"); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	got, err := fsys.ReadFile("/f.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}

	// No temp file left behind.
	for _, f := range fsys.Files() {
		if f != "/f.txt" {
			t.Errorf("stray file %s", f)
		}
	}
}

func TestWriteFileAtomicCreates(t *testing.T) {
	fsys := NewMemFS()

	if err := WriteFileAtomic(fsys, "/new.txt", []byte("content"), 0600, "t"); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	info, err := fsys.Stat("/new.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestWriteFileAtomicZeroPerm(t *testing.T) {
	fsys := NewMemFS()

	if err := WriteFileAtomic(fsys, "/f.txt", []byte("x"), 0, "t"); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	info, _ := fsys.Stat("/f.txt")
	if info.Mode().Perm() != DefaultFileMode {
		t.Errorf("mode = %o, want default %o", info.Mode().Perm(), DefaultFileMode)
	}
}

type renameFailFS struct {
	VFS
	err error
}

func (r *renameFailFS) Rename(oldPath, newPath string) error {
	return r.err
}

func TestWriteFileAtomicRenameFailure(t *testing.T) {
	mem := NewMemFS()
	if err := mem.AddFile("/f.txt", "original"); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	boom := errors.New("rename refused")
	fsys := &renameFailFS{VFS: mem, err: boom}

	err := WriteFileAtomic(fsys, "/f.txt", []byte("new"), 0644, "t")
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want rename failure", err)
	}

	// Target untouched and temp file cleaned up.
	got, _ := mem.ReadFile("/f.txt")
	if string(got) != "original" {
		t.Errorf("content = %q, want %q", got, "original")
	}
	for _, f := range mem.Files() {
		if f != "/f.txt" {
			t.Errorf("stray file %s", f)
		}
	}
}

func TestWriteFileAtomicOS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fsys := NewOSFS()
	if err := WriteFileAtomic(fsys, path, []byte("new"), 0644, "test"); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestCopyFile(t *testing.T) {
	fsys := NewMemFS()
	if err := fsys.WriteFile("/src.txt", []byte("payload"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := CopyFile(fsys, "/src.txt", "/dst.txt"); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	got, err := fsys.ReadFile("/dst.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q", got)
	}

	info, _ := fsys.Stat("/dst.txt")
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %o, want source's 0600", info.Mode().Perm())
	}
}

func TestCopyFileOverwrites(t *testing.T) {
	fsys := NewMemFS()
	if err := fsys.AddFile("/src.txt", "v2"); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := fsys.AddFile("/dst.txt", "v1"); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	if err := CopyFile(fsys, "/src.txt", "/dst.txt"); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	got, _ := fsys.ReadFile("/dst.txt")
	if string(got) != "v2" {
		t.Errorf("content = %q, want %q", got, "v2")
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	fsys := NewMemFS()
	err := CopyFile(fsys, "/missing", "/dst")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
}
