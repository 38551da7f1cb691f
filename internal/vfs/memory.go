package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// maxLinkDepth bounds symlink resolution in MemFS.
const maxLinkDepth = 32

// MemFS implements VFS using an in-memory file system.
// It is primarily used for testing.
//
// MemFS is safe for concurrent use.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
	dirs  map[string]bool
	links map[string]string
}

type memFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMemFS creates a new in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{"/": true},
		links: make(map[string]string),
	}
}

// Ensure MemFS implements VFS.
var _ VFS = (*MemFS)(nil)

// ReadFile reads the entire file content.
func (m *MemFS) ReadFile(filePath string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath, err := m.resolve(m.cleanPath(filePath))
	if err != nil {
		return nil, err
	}
	f, ok := m.files[filePath]
	if !ok {
		if m.dirs[filePath] {
			return nil, &fs.PathError{Op: "read", Path: filePath, Err: syscall.EISDIR}
		}
		return nil, &fs.PathError{Op: "read", Path: filePath, Err: fs.ErrNotExist}
	}

	// Return a copy to prevent modification
	content := make([]byte, len(f.content))
	copy(content, f.content)
	return content, nil
}

// WriteFile writes data to a file, creating it if necessary.
func (m *MemFS) WriteFile(filePath string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath, err := m.resolve(m.cleanPath(filePath))
	if err != nil {
		return err
	}
	if m.dirs[filePath] {
		return &fs.PathError{Op: "write", Path: filePath, Err: syscall.EISDIR}
	}

	// Ensure parent directory exists
	dir := path.Dir(filePath)
	if dir != "/" && !m.dirs[dir] {
		return &fs.PathError{Op: "write", Path: filePath, Err: fs.ErrNotExist}
	}

	content := make([]byte, len(data))
	copy(content, data)

	m.files[filePath] = &memFile{
		content: content,
		mode:    perm,
		modTime: time.Now(),
	}
	return nil
}

// Stat returns file information, following symlinks.
func (m *MemFS) Stat(filePath string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath, err := m.resolve(m.cleanPath(filePath))
	if err != nil {
		return FileInfo{}, err
	}

	if f, ok := m.files[filePath]; ok {
		return NewFileInfo(
			filePath,
			path.Base(filePath),
			int64(len(f.content)),
			f.mode,
			f.modTime,
			false,
		), nil
	}

	if m.dirs[filePath] {
		return NewFileInfo(
			filePath,
			path.Base(filePath),
			0,
			fs.ModeDir|0755,
			time.Now(),
			true,
		), nil
	}

	return FileInfo{}, &fs.PathError{Op: "stat", Path: filePath, Err: fs.ErrNotExist}
}

// Remove removes a file.
func (m *MemFS) Remove(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)

	if _, ok := m.files[filePath]; ok {
		delete(m.files, filePath)
		return nil
	}
	if _, ok := m.links[filePath]; ok {
		delete(m.links, filePath)
		return nil
	}

	return &fs.PathError{Op: "remove", Path: filePath, Err: fs.ErrNotExist}
}

// Rename renames (moves) a file, atomically replacing any existing target.
func (m *MemFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldPath = m.cleanPath(oldPath)
	newPath = m.cleanPath(newPath)

	f, ok := m.files[oldPath]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
	}

	newParent := path.Dir(newPath)
	if newParent != "/" && !m.dirs[newParent] {
		return &fs.PathError{Op: "rename", Path: newPath, Err: fs.ErrNotExist}
	}
	if m.dirs[newPath] {
		return &fs.PathError{Op: "rename", Path: newPath, Err: syscall.EISDIR}
	}

	m.files[newPath] = f
	delete(m.files, oldPath)
	return nil
}

// EvalSymlinks resolves all symlinks in path.
func (m *MemFS) EvalSymlinks(filePath string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	resolved, err := m.resolve(filePath)
	if err != nil {
		return "", err
	}
	if _, ok := m.files[resolved]; !ok && !m.dirs[resolved] {
		return "", &fs.PathError{Op: "lstat", Path: filePath, Err: fs.ErrNotExist}
	}
	return resolved, nil
}

// resolve follows symlinks up to maxLinkDepth.
// Callers must hold at least a read lock.
func (m *MemFS) resolve(filePath string) (string, error) {
	for i := 0; i < maxLinkDepth; i++ {
		target, ok := m.links[filePath]
		if !ok {
			return filePath, nil
		}
		filePath = m.cleanPath(target)
	}
	return "", &fs.PathError{Op: "lstat", Path: filePath, Err: syscall.ELOOP}
}

// Abs returns the absolute path (already absolute in MemFS).
func (m *MemFS) Abs(filePath string) (string, error) {
	return m.cleanPath(filePath), nil
}

// Dir returns the directory portion of a path.
func (m *MemFS) Dir(filePath string) string {
	return path.Dir(m.cleanPath(filePath))
}

// Base returns the last element of a path.
func (m *MemFS) Base(filePath string) string {
	return path.Base(filePath)
}

// Join joins path elements.
func (m *MemFS) Join(elem ...string) string {
	return path.Join(elem...)
}

// Clean returns the cleaned path.
func (m *MemFS) Clean(filePath string) string {
	return m.cleanPath(filePath)
}

// Exists returns true if the path exists.
func (m *MemFS) Exists(filePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath, err := m.resolve(m.cleanPath(filePath))
	if err != nil {
		return false
	}
	_, isFile := m.files[filePath]
	return isFile || m.dirs[filePath]
}

// IsDir returns true if the path is a directory.
func (m *MemFS) IsDir(filePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath, err := m.resolve(m.cleanPath(filePath))
	if err != nil {
		return false
	}
	return m.dirs[filePath]
}

// IsRegular returns true if the path is a regular file.
func (m *MemFS) IsRegular(filePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath, err := m.resolve(m.cleanPath(filePath))
	if err != nil {
		return false
	}
	_, ok := m.files[filePath]
	return ok
}

// MkdirAll creates a directory and all parent directories.
func (m *MemFS) MkdirAll(dirPath string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirPath = m.cleanPath(dirPath)

	if _, ok := m.files[dirPath]; ok {
		return &fs.PathError{Op: "mkdir", Path: dirPath, Err: syscall.ENOTDIR}
	}

	parts := strings.Split(strings.Trim(dirPath, "/"), "/")
	current := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		current += "/" + part
		if _, ok := m.files[current]; ok {
			return &fs.PathError{Op: "mkdir", Path: current, Err: syscall.ENOTDIR}
		}
		m.dirs[current] = true
	}

	return nil
}

// AddFile is a convenience method for adding files during setup.
func (m *MemFS) AddFile(filePath string, content string) error {
	dir := path.Dir(m.cleanPath(filePath))
	if dir != "/" {
		if err := m.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return m.WriteFile(filePath, []byte(content), 0644)
}

// AddSymlink registers a symlink from linkPath to target during setup.
func (m *MemFS) AddSymlink(linkPath, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[m.cleanPath(linkPath)] = target
}

// Files returns all file paths in the file system.
// Useful for testing and debugging.
func (m *MemFS) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]string, 0, len(m.files))
	for f := range m.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// cleanPath normalizes a path.
func (m *MemFS) cleanPath(p string) string {
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
