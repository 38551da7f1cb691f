package vfs

import (
	"fmt"
	"io/fs"
)

// DefaultFileMode is used when the original file's mode cannot be
// determined (e.g. the target does not exist yet).
const DefaultFileMode fs.FileMode = 0644

// WriteFileAtomic writes data to path so that the target is always
// observed either in its pre-write or post-write state, never partial.
// It writes to a sibling temporary file and renames it over the target;
// the rename is the only operation that touches the target path.
//
// The tag distinguishes temp files from concurrent calls; callers pass a
// per-call unique value. The temp file is removed if the rename fails.
func WriteFileAtomic(fsys VFS, path string, data []byte, perm fs.FileMode, tag string) error {
	if perm == 0 {
		perm = DefaultFileMode
	}

	tmp := fmt.Sprintf("%s.%s.tmp", path, tag)
	if err := fsys.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := fsys.Rename(tmp, path); err != nil {
		// The target still holds its pre-call content; only the temp
		// file was being written.
		_ = fsys.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}

// CopyFile copies src to dst, preserving src's file mode.
// dst is overwritten if it exists. Used for single-generation backups.
func CopyFile(fsys VFS, src, dst string) error {
	data, err := fsys.ReadFile(src)
	if err != nil {
		return err
	}

	perm := DefaultFileMode
	if info, err := fsys.Stat(src); err == nil {
		perm = info.Mode().Perm()
	}

	return fsys.WriteFile(dst, data, perm)
}
