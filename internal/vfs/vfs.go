// Package vfs provides a virtual file system abstraction.
//
// The VFS interface allows swapping the underlying file system
// implementation, enabling testing with an in-memory file system while
// production code runs against the OS. It also hosts the write primitives
// the edit engine depends on: atomic replace-by-rename and single
// generation backups.
package vfs

import (
	"io/fs"
	"time"
)

// VFS is a virtual file system abstraction.
// It covers exactly the operations the edit engine and the safety gate
// need: whole-file reads and writes, renames, symlink resolution, and
// path queries.
type VFS interface {
	// ReadFile reads the entire file content.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating it if necessary.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Stat returns file information, following symlinks.
	Stat(path string) (FileInfo, error)

	// Remove removes a file.
	Remove(path string) error

	// Rename renames (moves) a file. On POSIX systems this atomically
	// replaces an existing target.
	Rename(oldPath, newPath string) error

	// EvalSymlinks resolves all symlinks in path and returns the
	// concrete path.
	EvalSymlinks(path string) (string, error)

	// Abs returns the absolute path.
	Abs(path string) (string, error)

	// Dir returns the directory portion of a path.
	Dir(path string) string

	// Base returns the last element of a path.
	Base(path string) string

	// Join joins path elements.
	Join(elem ...string) string

	// Clean returns the cleaned path.
	Clean(path string) string

	// Exists returns true if the path exists.
	Exists(path string) bool

	// IsDir returns true if the path is a directory.
	IsDir(path string) bool

	// IsRegular returns true if the path is a regular file.
	IsRegular(path string) bool
}

// FileInfo describes a file or directory.
type FileInfo struct {
	path    string
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

// NewFileInfo creates a FileInfo from the given parameters.
func NewFileInfo(path, name string, size int64, mode fs.FileMode, modTime time.Time, isDir bool) FileInfo {
	return FileInfo{
		path:    path,
		name:    name,
		size:    size,
		mode:    mode,
		modTime: modTime,
		isDir:   isDir,
	}
}

// Path returns the full path.
func (fi FileInfo) Path() string { return fi.path }

// Name returns the base name.
func (fi FileInfo) Name() string { return fi.name }

// Size returns the file size in bytes.
func (fi FileInfo) Size() int64 { return fi.size }

// Mode returns the file mode.
func (fi FileInfo) Mode() fs.FileMode { return fi.mode }

// ModTime returns the modification time.
func (fi FileInfo) ModTime() time.Time { return fi.modTime }

// IsDir returns true if this is a directory.
func (fi FileInfo) IsDir() bool { return fi.isDir }

// IsRegular returns true if this is a regular file.
func (fi FileInfo) IsRegular() bool { return fi.mode.IsRegular() }

// IsSymlink returns true if this is a symbolic link.
func (fi FileInfo) IsSymlink() bool { return fi.mode&fs.ModeSymlink != 0 }
