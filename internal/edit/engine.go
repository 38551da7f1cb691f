package edit

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/google/uuid"

	"github.com/dshills/patchkit/internal/logging"
	"github.com/dshills/patchkit/internal/vfs"
)

// DefaultBackupSuffix is appended to the original path to form the
// backup path. One generation only: a second backup overwrites the first.
const DefaultBackupSuffix = ".bak"

// Engine applies edit requests to single files.
type Engine struct {
	fs           vfs.VFS
	log          *logging.Logger
	backupSuffix string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithBackupSuffix overrides the backup path suffix.
func WithBackupSuffix(suffix string) Option {
	return func(e *Engine) {
		e.backupSuffix = suffix
	}
}

// New creates an Engine backed by the given file system.
func New(fsys vfs.VFS, opts ...Option) *Engine {
	e := &Engine{
		fs:           fsys,
		log:          logging.Nop(),
		backupSuffix: DefaultBackupSuffix,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BackupPath returns the backup sibling for path.
func (e *Engine) BackupPath(path string) string {
	return path + e.backupSuffix
}

// FileText is a file's content decoded for editing.
type FileText struct {
	// Raw is the original on-disk bytes.
	Raw []byte

	// Text is the UTF-8 working text.
	Text []byte

	// Encoding is the detected encoding, used to restore the on-disk
	// representation on write.
	Encoding vfs.Encoding

	// Perm is the original file mode.
	Perm fs.FileMode
}

// Read loads and decodes a file for editing.
// Binary and undecodable content is rejected with ErrInvalidEncoding.
func (e *Engine) Read(path string) (*FileText, error) {
	raw, err := e.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if vfs.IsBinary(raw) {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidEncoding)
	}

	text, enc, err := vfs.Decode(raw)
	if err != nil || enc == vfs.EncodingUnknown {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidEncoding)
	}

	perm := vfs.DefaultFileMode
	if info, statErr := e.fs.Stat(path); statErr == nil {
		perm = info.Mode().Perm()
	}

	e.log.Debug("file loaded", "path", path, "bytes", len(raw), "lines", vfs.CountLines(text))
	return &FileText{Raw: raw, Text: text, Encoding: enc, Perm: perm}, nil
}

// Simulate runs every operation in order against an in-memory copy of
// text and returns the final content plus per-operation results. The
// input slice is never modified. A *MatchError aborts at the first
// operation that does not match.
func (e *Engine) Simulate(text []byte, ops []Operation) ([]byte, []OpResult, error) {
	buf := make([]byte, len(text))
	copy(buf, text)

	results := make([]OpResult, 0, len(ops))
	for i, op := range ops {
		if op.Search == "" {
			return nil, nil, fmt.Errorf("edit %d: %w", i, ErrEmptySearch)
		}

		spans := findOccurrences(buf, op.Search, op.Fold)
		switch {
		case len(spans) == 0:
			return nil, nil, &MatchError{
				Kind:    NoMatch,
				OpIndex: i,
				Search:  op.Search,
				Prior:   results,
			}
		case len(spans) > 1 && !op.All:
			lines := make([]int, len(spans))
			for j, s := range spans {
				lines[j] = lineOf(buf, s.Start)
			}
			return nil, nil, &MatchError{
				Kind:    Ambiguous,
				OpIndex: i,
				Search:  op.Search,
				Lines:   lines,
				Prior:   results,
			}
		}

		buf = replaceSpans(buf, spans, op.Replace)
		results = append(results, OpResult{Index: i, Replaced: len(spans)})
	}

	return buf, results, nil
}

// Backup copies the file's current bytes to its backup sibling.
// Returns the backup path.
func (e *Engine) Backup(path string) (string, error) {
	backupPath := e.BackupPath(path)
	if err := vfs.CopyFile(e.fs, path, backupPath); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

// Write encodes text and atomically replaces the target file.
// The tag keeps temp file names from colliding across calls.
func (e *Engine) Write(path string, text []byte, enc vfs.Encoding, perm fs.FileMode, tag string) error {
	encoded, err := vfs.Encode(text, enc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return vfs.WriteFileAtomic(e.fs, path, encoded, perm, tag)
}

// Apply runs a single-file edit request end to end: read, simulate,
// optional backup, atomic write. On any failure the target file is
// byte-identical to its pre-call state.
func (e *Engine) Apply(ctx context.Context, req Request) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ft, err := e.Read(req.Path)
	if err != nil {
		return nil, err
	}

	final, results, err := e.Simulate(ft.Text, req.Ops)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Path:    req.Path,
		Applied: len(results),
		Results: results,
		DryRun:  req.DryRun,
	}
	if req.ReturnContent {
		out.FinalContent = final
	}

	if req.DryRun {
		e.log.Debug("dry run complete", "path", req.Path, "edits", len(results))
		return out, nil
	}

	if req.Backup {
		backupPath, err := e.Backup(req.Path)
		if err != nil {
			// Nothing destructive has happened yet.
			return nil, err
		}
		out.BackupPath = backupPath
	}

	tag := uuid.NewString()
	if err := e.Write(req.Path, final, ft.Encoding, ft.Perm, tag); err != nil {
		return nil, err
	}

	e.log.Info("file edited", "path", req.Path, "edits", len(results))
	return out, nil
}
