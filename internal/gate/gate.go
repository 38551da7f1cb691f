// Package gate validates edit requests before the engine touches file
// content.
//
// The gate rejects malformed paths, unresolvable or non-regular targets,
// oversized files, and edit lists with empty or duplicate search strings.
// The engine trusts gated requests but still defends against files
// changing between validation and its own read.
package gate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dshills/patchkit/internal/edit"
	"github.com/dshills/patchkit/internal/vfs"
)

// Validation sentinel errors.
var (
	// ErrNotAbsolute indicates a relative target path.
	ErrNotAbsolute = errors.New("path is not absolute")

	// ErrTraversal indicates a path with '.' or '..' segments or other
	// non-canonical structure.
	ErrTraversal = errors.New("path is not canonical")

	// ErrNotRegular indicates a target that is not a regular file.
	ErrNotRegular = errors.New("not a regular file")

	// ErrTooLarge indicates a file over the configured size limit.
	ErrTooLarge = errors.New("file too large")

	// ErrEmptySearch indicates an edit with empty search text.
	ErrEmptySearch = errors.New("search text is empty")

	// ErrDuplicateSearch indicates two edits in one file sharing the
	// same search text.
	ErrDuplicateSearch = errors.New("duplicate search text")

	// ErrNoEdits indicates a request with an empty edit list.
	ErrNoEdits = errors.New("no edits in request")
)

// RequestError wraps a validation failure with its file and edit index.
type RequestError struct {
	Path    string
	OpIndex int // -1 when the failure is not tied to one edit
	Err     error
}

// NewRequestError creates a RequestError not tied to an edit index.
func NewRequestError(path string, err error) *RequestError {
	return &RequestError{Path: path, OpIndex: -1, Err: err}
}

func (e *RequestError) Error() string {
	if e.OpIndex >= 0 {
		return fmt.Sprintf("%s: edit %d: %v", e.Path, e.OpIndex, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// DefaultMaxFileSize caps files the engine will load. 10MB, matching the
// in-memory editing model.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Gate validates requests against a file system.
type Gate struct {
	fs          vfs.VFS
	maxFileSize int64
}

// Option configures a Gate.
type Option func(*Gate)

// WithMaxFileSize sets the maximum file size (0 = unlimited).
func WithMaxFileSize(size int64) Option {
	return func(g *Gate) {
		g.maxFileSize = size
	}
}

// New creates a Gate backed by the given file system.
func New(fsys vfs.VFS, opts ...Option) *Gate {
	g := &Gate{
		fs:          fsys,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Normalize validates every request and returns copies with symlinks
// resolved to concrete paths. The first failure aborts: requests are
// either all valid or the batch is rejected.
func (g *Gate) Normalize(ctx context.Context, reqs []edit.Request) ([]edit.Request, error) {
	out := make([]edit.Request, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resolved, err := g.check(req)
		if err != nil {
			return nil, err
		}

		out[i] = req
		out[i].Path = resolved
	}
	return out, nil
}

// check validates one request and returns the symlink-resolved path.
func (g *Gate) check(req edit.Request) (string, error) {
	path := req.Path

	if !filepath.IsAbs(path) {
		return "", NewRequestError(path, ErrNotAbsolute)
	}
	if g.fs.Clean(path) != path {
		return "", NewRequestError(path, ErrTraversal)
	}

	// Resolve through symlinks to the concrete file. Loops and missing
	// targets surface here as the underlying file system errors, wrapped
	// so the failing request's path stays attached.
	resolved, err := g.fs.EvalSymlinks(path)
	if err != nil {
		return "", NewRequestError(path, fmt.Errorf("resolving: %w", err))
	}

	info, err := g.fs.Stat(resolved)
	if err != nil {
		return "", NewRequestError(resolved, fmt.Errorf("checking: %w", err))
	}
	if !info.IsRegular() {
		return "", NewRequestError(resolved, ErrNotRegular)
	}
	if g.maxFileSize > 0 && info.Size() > g.maxFileSize {
		return "", NewRequestError(resolved, ErrTooLarge)
	}

	if len(req.Ops) == 0 {
		return "", NewRequestError(resolved, ErrNoEdits)
	}

	seen := make(map[string]bool, len(req.Ops))
	for i, op := range req.Ops {
		if op.Search == "" {
			return "", &RequestError{Path: resolved, OpIndex: i, Err: ErrEmptySearch}
		}
		if seen[op.Search] {
			return "", &RequestError{Path: resolved, OpIndex: i, Err: ErrDuplicateSearch}
		}
		seen[op.Search] = true
	}

	return resolved, nil
}
