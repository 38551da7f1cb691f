package vfs

import (
	"errors"
	"os"
	"path/filepath"
)

// OSFS implements VFS using the operating system's file system.
type OSFS struct{}

// NewOSFS creates a new OS file system.
func NewOSFS() *OSFS {
	return &OSFS{}
}

// Ensure OSFS implements VFS.
var _ VFS = (*OSFS)(nil)

// ReadFile reads the entire file content.
func (f *OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file, creating it if necessary.
func (f *OSFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// Stat returns file information.
func (f *OSFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return osFileInfoToVFS(path, info), nil
}

// Remove removes a file.
func (f *OSFS) Remove(path string) error {
	return os.Remove(path)
}

// Rename renames (moves) a file.
func (f *OSFS) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// EvalSymlinks resolves all symlinks in path.
func (f *OSFS) EvalSymlinks(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}

// Abs returns the absolute path.
func (f *OSFS) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

// Dir returns the directory portion of a path.
func (f *OSFS) Dir(path string) string {
	return filepath.Dir(path)
}

// Base returns the last element of a path.
func (f *OSFS) Base(path string) string {
	return filepath.Base(path)
}

// Join joins path elements.
func (f *OSFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// Clean returns the cleaned path.
func (f *OSFS) Clean(path string) string {
	return filepath.Clean(path)
}

// Exists returns true if the path exists.
func (f *OSFS) Exists(path string) bool {
	_, err := os.Stat(path)
	// Return true unless we confirm the file doesn't exist.
	// Permission errors mean we can't determine existence, but the path may exist.
	return !errors.Is(err, os.ErrNotExist)
}

// IsDir returns true if the path is a directory.
func (f *OSFS) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsRegular returns true if the path is a regular file.
func (f *OSFS) IsRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// osFileInfoToVFS converts os.FileInfo to vfs.FileInfo.
func osFileInfoToVFS(path string, info os.FileInfo) FileInfo {
	return NewFileInfo(
		path,
		info.Name(),
		info.Size(),
		info.Mode(),
		info.ModTime(),
		info.IsDir(),
	)
}
