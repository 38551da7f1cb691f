// Package diagnose converts raw failures into structured, coded
// descriptors a non-interactive caller can act on.
//
// Every failure path in the engine, coordinator, and gate funnels through
// Classify: matching failures, validation failures, and file system
// errors all come out as one Descriptor with a fixed code, a retryable
// flag, ordered recovery hints, and (for matching failures) file context
// the caller can paste into a corrected request.
package diagnose

// Code identifies a failure class. Codes are fixed: retryability and
// default hints key off them.
type Code string

const (
	// Matching failures (caller-correctable).
	CodeNoMatch        Code = "no_match"
	CodeAmbiguousMatch Code = "ambiguous_match"

	// Validation failures (caller-correctable, raised by the gate).
	CodeInvalidPath     Code = "invalid_path"
	CodeEmptySearch     Code = "empty_search"
	CodeDuplicateSearch Code = "duplicate_search"
	CodeInvalidRequest  Code = "invalid_request"

	// File system failures.
	CodeNotFound         Code = "not_found"
	CodeIsDirectory      Code = "is_directory"
	CodeFileTooLarge     Code = "file_too_large"
	CodePermissionDenied Code = "permission_denied"
	CodeDiskFull         Code = "disk_full"
	CodeReadOnlyFS       Code = "read_only_fs"
	CodeSymlinkLoop      Code = "symlink_loop"
	CodeInvalidEncoding  Code = "invalid_encoding"

	// CodeRollbackFailed marks the structural anomaly where a rollback
	// restore itself failed and atomicity could not be honored.
	CodeRollbackFailed Code = "rollback_failed"

	// CodeUnknown is the catch-all for unclassified failures.
	CodeUnknown Code = "unknown"
)

// retryable is fixed per code: true when the caller can likely succeed by
// correcting its input, false when the environment must change first.
var retryable = map[Code]bool{
	CodeNoMatch:         true,
	CodeAmbiguousMatch:  true,
	CodeInvalidPath:     true,
	CodeEmptySearch:     true,
	CodeDuplicateSearch: true,
	CodeInvalidRequest:  true,
	CodeNotFound:        true,
	CodeIsDirectory:     true,

	CodeFileTooLarge:     false,
	CodePermissionDenied: false,
	CodeDiskFull:         false,
	CodeReadOnlyFS:       false,
	CodeSymlinkLoop:      false,
	CodeInvalidEncoding:  false,
	CodeRollbackFailed:   false,
	CodeUnknown:          false,
}

// Retryable reports whether the code is caller-correctable.
func (c Code) Retryable() bool {
	return retryable[c]
}

// hints holds the default recovery hints per code, ordered so the caller
// can try the most likely one first. Every code has at least one hint;
// hints stay general and never suggest literal replacement text.
var hints = map[Code][]string{
	CodeNoMatch: {
		"Re-read the file and copy the search text exactly from its current content",
		"Check for whitespace differences: tabs versus spaces, trailing whitespace, line endings",
		"An earlier edit in the same request may have already changed this text",
	},
	CodeAmbiguousMatch: {
		"Extend the search text with surrounding lines until it matches exactly one location",
		"Set the all flag to replace every occurrence deliberately",
	},
	CodeInvalidPath: {
		"Provide an absolute path without '.' or '..' segments",
	},
	CodeEmptySearch: {
		"Every edit needs non-empty search text",
	},
	CodeDuplicateSearch: {
		"Merge edits that share a search text into one edit, or make their search texts distinct",
	},
	CodeInvalidRequest: {
		"The request payload is not valid JSON or is missing required fields",
	},
	CodeNotFound: {
		"Verify the file path is spelled correctly and absolute",
		"The file may have been moved or deleted since it was last listed",
	},
	CodeIsDirectory: {
		"The path names a directory; specify a regular file",
	},
	CodeFileTooLarge: {
		"The file exceeds the configured size limit and cannot be edited in memory",
	},
	CodePermissionDenied: {
		"The process lacks permission for this file; ownership or mode must change externally",
	},
	CodeDiskFull: {
		"Free disk space before retrying; no partial content was written",
	},
	CodeReadOnlyFS: {
		"The file system is mounted read-only; remount it or choose another location",
	},
	CodeSymlinkLoop: {
		"The path resolves through a symlink cycle; fix the links outside this tool",
	},
	CodeInvalidEncoding: {
		"The file is binary or not valid Unicode text; only text files can be edited",
	},
	CodeRollbackFailed: {
		"Atomicity could not be honored: inspect the file and restore it from the reported backup path",
		"Do not retry until the file's on-disk state has been verified",
	},
	CodeUnknown: {
		"Inspect the underlying error message",
		"Retry only after the reported cause has been addressed",
	},
}

// Hints returns the ordered default recovery hints for the code.
// The returned slice is a copy.
func (c Code) Hints() []string {
	h, ok := hints[c]
	if !ok {
		h = hints[CodeUnknown]
	}
	out := make([]string, len(h))
	copy(out, h)
	return out
}
