package diagnose

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/dshills/patchkit/internal/edit"
	"github.com/dshills/patchkit/internal/gate"
	"github.com/dshills/patchkit/internal/logging"
	"github.com/dshills/patchkit/internal/txn"
	"github.com/dshills/patchkit/internal/vfs"
)

// Context extraction defaults.
const (
	// DefaultNoMatchWindow is the line count before and after a partial
	// match.
	DefaultNoMatchWindow = 7

	// DefaultAmbiguousWindow is the line count before and after each
	// ambiguous occurrence.
	DefaultAmbiguousWindow = 3

	// DefaultMaxLocations caps reported ambiguous occurrences.
	DefaultMaxLocations = 5

	// DefaultHeadLines is the fallback window when no partial match is
	// found at any prefix length.
	DefaultHeadLines = 15

	// DefaultMinPrefix is the shortest search-text prefix (in runes)
	// tried when locating a partial match.
	DefaultMinPrefix = 8
)

// Classifier turns raw failures into Descriptors. It reads file content
// best-effort to build context; it never mutates files.
type Classifier struct {
	fs  vfs.VFS
	log *logging.Logger

	noMatchWindow   int
	ambiguousWindow int
	maxLocations    int
	headLines       int
	minPrefix       int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the classifier's logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Classifier) {
		c.log = log
	}
}

// WithWindows overrides the no-match and ambiguous context window sizes.
func WithWindows(noMatch, ambiguous int) Option {
	return func(c *Classifier) {
		c.noMatchWindow = noMatch
		c.ambiguousWindow = ambiguous
	}
}

// WithMaxLocations overrides the ambiguous location cap.
func WithMaxLocations(n int) Option {
	return func(c *Classifier) {
		c.maxLocations = n
	}
}

// New creates a Classifier backed by the given file system.
func New(fsys vfs.VFS, opts ...Option) *Classifier {
	c := &Classifier{
		fs:              fsys,
		log:             logging.Nop(),
		noMatchWindow:   DefaultNoMatchWindow,
		ambiguousWindow: DefaultAmbiguousWindow,
		maxLocations:    DefaultMaxLocations,
		headLines:       DefaultHeadLines,
		minPrefix:       DefaultMinPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify converts any failure into one Descriptor. path and ops give
// the file and edit list the failure concerns; ops may be nil when the
// failure predates simulation.
func (c *Classifier) Classify(err error, path string, ops []edit.Operation) *Descriptor {
	var me *edit.MatchError
	if errors.As(err, &me) {
		return c.matchDescriptor(me, path, ops)
	}

	var re *gate.RequestError
	if errors.As(err, &re) {
		return gateDescriptor(re)
	}

	code := fsCode(err)
	if code == CodeUnknown {
		c.log.Warn("unclassified failure", "path", path, "error", err)
	}

	return &Descriptor{
		Code:      code,
		Message:   fsMessage(code, path, err),
		Retryable: code.Retryable(),
		Path:      path,
		Hints:     code.Hints(),
	}
}

// ClassifyTxn produces the single Descriptor for a failed transaction.
// A rollback failure dominates every other cause: it is the one state
// where atomicity could not be honored.
func (c *Classifier) ClassifyTxn(res *txn.Result, err error, reqs []edit.Request) *Descriptor {
	for _, f := range res.Files {
		if f.Status != txn.StatusRollbackFailed {
			continue
		}
		msg := fmt.Sprintf("edits to %s could not be rolled back; on-disk state is unverified", f.Path)
		if f.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, f.Err)
		}
		if f.BackupPath != "" {
			msg = fmt.Sprintf("%s; pre-call content is at %s", msg, f.BackupPath)
		}
		return &Descriptor{
			Code:      CodeRollbackFailed,
			Message:   msg,
			Retryable: CodeRollbackFailed.Retryable(),
			Path:      f.Path,
			Hints:     CodeRollbackFailed.Hints(),
		}
	}

	for i, f := range res.Files {
		if f.Status != txn.StatusFailed {
			continue
		}
		cause := f.Err
		if cause == nil {
			cause = err
		}
		var ops []edit.Operation
		if i < len(reqs) {
			ops = reqs[i].Ops
		}
		return c.Classify(cause, f.Path, ops)
	}

	return c.Classify(err, "", nil)
}

// matchDescriptor builds the descriptor for a simulation failure,
// including file context and per-edit status.
func (c *Classifier) matchDescriptor(me *edit.MatchError, path string, ops []edit.Operation) *Descriptor {
	code := CodeNoMatch
	msg := fmt.Sprintf("edit %d: search text not found in %s", me.OpIndex, path)
	if me.Kind == edit.Ambiguous {
		code = CodeAmbiguousMatch
		msg = fmt.Sprintf("edit %d: search text matches %d locations in %s", me.OpIndex, len(me.Lines), path)
	}

	idx := me.OpIndex
	d := &Descriptor{
		Code:      code,
		Message:   msg,
		Retryable: code.Retryable(),
		Path:      path,
		EditIndex: &idx,
		Hints:     code.Hints(),
		Edits:     opStatuses(me, ops, code),
	}

	// Context is best-effort: a file that cannot be re-read simply
	// yields a descriptor without context.
	if text, ok := c.readText(path); ok {
		if code == CodeNoMatch {
			d.Context = c.noMatchContext(text, me.Search)
		} else {
			d.Context = c.ambiguousContext(text, me.Lines)
		}
	}

	return d
}

// opStatuses lists the failing edit and every edit after it. Preceding
// edits are omitted: absence means success.
func opStatuses(me *edit.MatchError, ops []edit.Operation, code Code) []OpStatus {
	statuses := []OpStatus{{
		Index:         me.OpIndex,
		State:         StateFailed,
		Code:          code,
		SearchPreview: preview(me.Search),
	}}
	for j := me.OpIndex + 1; j < len(ops); j++ {
		statuses = append(statuses, OpStatus{
			Index:         j,
			State:         StateSkipped,
			SearchPreview: preview(ops[j].Search),
		})
	}
	return statuses
}

// readText re-reads and decodes the file once, best-effort.
func (c *Classifier) readText(path string) ([]byte, bool) {
	raw, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, false
	}
	text, enc, err := vfs.Decode(raw)
	if err != nil || enc == vfs.EncodingUnknown {
		return nil, false
	}
	return text, true
}

// gateDescriptor maps validation sentinels to codes. Failures the gate
// wrapped around file system errors (missing target, symlink loop) fall
// through to the file system mapping, keeping the request's path.
func gateDescriptor(re *gate.RequestError) *Descriptor {
	var code Code
	switch {
	case errors.Is(re, gate.ErrNotAbsolute), errors.Is(re, gate.ErrTraversal):
		code = CodeInvalidPath
	case errors.Is(re, gate.ErrNotRegular):
		code = CodeIsDirectory
	case errors.Is(re, gate.ErrTooLarge):
		code = CodeFileTooLarge
	case errors.Is(re, gate.ErrEmptySearch):
		code = CodeEmptySearch
	case errors.Is(re, gate.ErrDuplicateSearch):
		code = CodeDuplicateSearch
	case errors.Is(re, gate.ErrNoEdits):
		code = CodeInvalidRequest
	default:
		code = fsCode(re.Err)
		return &Descriptor{
			Code:      code,
			Message:   fsMessage(code, re.Path, re.Err),
			Retryable: code.Retryable(),
			Path:      re.Path,
			Hints:     code.Hints(),
		}
	}

	d := &Descriptor{
		Code:      code,
		Message:   re.Error(),
		Retryable: code.Retryable(),
		Path:      re.Path,
		Hints:     code.Hints(),
	}
	if re.OpIndex >= 0 {
		idx := re.OpIndex
		d.EditIndex = &idx
	}
	return d
}

// fsCode maps platform file system errors to the fixed taxonomy.
func fsCode(err error) Code {
	switch {
	case errors.Is(err, edit.ErrInvalidEncoding):
		return CodeInvalidEncoding
	case errors.Is(err, edit.ErrEmptySearch):
		return CodeEmptySearch
	case errors.Is(err, fs.ErrNotExist):
		return CodeNotFound
	case errors.Is(err, fs.ErrPermission):
		return CodePermissionDenied
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return CodeDiskFull
	case errors.Is(err, syscall.EROFS):
		return CodeReadOnlyFS
	case errors.Is(err, syscall.ELOOP):
		return CodeSymlinkLoop
	case errors.Is(err, syscall.EISDIR):
		return CodeIsDirectory
	default:
		return CodeUnknown
	}
}

// fsMessage builds the human-readable message for a file system failure.
// With no path to name, the wrapped error text carries the detail.
func fsMessage(code Code, path string, err error) string {
	if path == "" && err != nil {
		return err.Error()
	}

	switch code {
	case CodeNotFound:
		return fmt.Sprintf("file not found: %s", path)
	case CodePermissionDenied:
		return fmt.Sprintf("permission denied: %s", path)
	case CodeDiskFull:
		return fmt.Sprintf("no space left on device writing %s", path)
	case CodeReadOnlyFS:
		return fmt.Sprintf("read-only file system: %s", path)
	case CodeSymlinkLoop:
		return fmt.Sprintf("too many symbolic links resolving %s", path)
	case CodeIsDirectory:
		return fmt.Sprintf("path is a directory: %s", path)
	case CodeInvalidEncoding:
		return fmt.Sprintf("not a text file: %s", path)
	default:
		if err != nil {
			return err.Error()
		}
		return string(code)
	}
}
