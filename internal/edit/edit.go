// Package edit implements the single-file edit engine.
//
// An edit request is an ordered list of exact-substring substitutions
// applied with all-or-nothing semantics: every operation must match, or
// nothing is written. Operations are validated against the evolving
// working buffer ("sequential simulation"), not the original file, so a
// later operation may match text produced by an earlier one.
package edit

import (
	"errors"
	"fmt"
)

// Operation is a single substitution within a request.
type Operation struct {
	// Search is the exact text to find, whitespace included.
	// Must be non-empty; the safety gate enforces this upstream.
	Search string

	// Replace is the substitution text. Empty means deletion.
	Replace string

	// All replaces every occurrence. When false, more than one
	// occurrence is an ambiguity failure.
	All bool

	// Fold enables Unicode case-insensitive matching.
	Fold bool
}

// Request describes all edits for one file.
type Request struct {
	// Path is the absolute, symlink-resolved target path.
	Path string

	// Ops are applied in order against the evolving buffer.
	Ops []Operation

	// DryRun computes the final content without writing.
	DryRun bool

	// Backup copies the original bytes to a sibling backup path before
	// any mutation.
	Backup bool

	// ReturnContent includes the full final content in the outcome.
	ReturnContent bool
}

// OpResult records the effect of one successfully applied operation.
type OpResult struct {
	// Index is the 0-based position of the operation in the request.
	Index int

	// Replaced is the number of occurrences replaced.
	Replaced int
}

// Outcome describes a successful apply.
type Outcome struct {
	// Path is the target file.
	Path string

	// Applied is the number of operations applied.
	Applied int

	// Results holds one entry per operation, in order.
	Results []OpResult

	// DryRun mirrors the request flag.
	DryRun bool

	// BackupPath is set when a backup was written.
	BackupPath string

	// FinalContent is the computed content, present when the request
	// asked for it.
	FinalContent []byte
}

// MatchKind distinguishes the two matching failures.
type MatchKind int

const (
	// NoMatch means the search text does not occur in the buffer.
	NoMatch MatchKind = iota

	// Ambiguous means the search text occurs more than once and the
	// operation did not ask for all occurrences.
	Ambiguous
)

// MatchError reports a simulation failure. It carries everything the
// diagnostic subsystem needs: the failing index, the occurrence line
// numbers for ambiguity, and the results of the operations simulated
// before the failure.
type MatchError struct {
	Kind    MatchKind
	OpIndex int
	Search  string

	// Lines holds the 1-based line number of every occurrence when
	// Kind is Ambiguous.
	Lines []int

	// Prior holds results for operations applied before the failure.
	Prior []OpResult
}

func (e *MatchError) Error() string {
	switch e.Kind {
	case Ambiguous:
		return fmt.Sprintf("edit %d: search text matches %d locations", e.OpIndex, len(e.Lines))
	default:
		return fmt.Sprintf("edit %d: search text not found", e.OpIndex)
	}
}

// Engine-level sentinel errors.
var (
	// ErrInvalidEncoding indicates content that is neither valid UTF-8
	// nor a recognized Unicode encoding.
	ErrInvalidEncoding = errors.New("content is not valid text")

	// ErrEmptySearch indicates an operation with empty search text.
	// The gate rejects these upstream; the engine defends anyway.
	ErrEmptySearch = errors.New("search text is empty")
)
