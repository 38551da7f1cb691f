package diagnose

// Descriptor is the single canonical failure shape returned to callers.
// Exactly one Descriptor is produced per failed call.
type Descriptor struct {
	// Code is the fixed failure class.
	Code Code `json:"code"`

	// Message is a short human-readable description.
	Message string `json:"message"`

	// Retryable reports whether corrected input can succeed, as opposed
	// to needing environmental remediation. Always consistent with Code.
	Retryable bool `json:"retryable"`

	// Path is the file the failure concerns, when known.
	Path string `json:"path,omitempty"`

	// EditIndex is the 0-based index of the failing edit, for matching
	// failures.
	EditIndex *int `json:"edit_index,omitempty"`

	// Hints are ordered recovery hints, most likely first. Never empty.
	Hints []string `json:"hints"`

	// Context carries raw file text near the failure so the caller can
	// construct a corrected search string.
	Context *Context `json:"context,omitempty"`

	// Edits holds per-edit status for the failing edit and every edit
	// after it. Edits before the failing index were simulated
	// successfully and are omitted: absence means success.
	Edits []OpStatus `json:"edits,omitempty"`
}

// Context is raw file text surrounding a matching failure.
// No line numbers are injected, so any snippet can be pasted back into a
// corrected search string unchanged.
type Context struct {
	// Snippet is the window around the most plausible location for a
	// no-match failure, or the head of the file when no partial match
	// was found.
	Snippet string `json:"snippet,omitempty"`

	// Locations holds one window per occurrence for an ambiguous-match
	// failure, capped.
	Locations []Location `json:"locations,omitempty"`

	// Omitted is the number of occurrences beyond the cap.
	Omitted int `json:"omitted,omitempty"`
}

// Location is one occurrence of ambiguous search text.
type Location struct {
	// Line is the 1-based line number of the occurrence.
	Line int `json:"line"`

	// Snippet is the raw text window around the occurrence.
	Snippet string `json:"snippet"`
}

// Edit states within OpStatus.
const (
	StateFailed  = "failed"
	StateSkipped = "skipped"
)

// OpStatus describes one edit in a failed request.
type OpStatus struct {
	// Index is the 0-based edit position.
	Index int `json:"index"`

	// State is "failed" for the edit that aborted the request and
	// "skipped" for every edit after it.
	State string `json:"state"`

	// Code is set on the failed edit.
	Code Code `json:"code,omitempty"`

	// SearchPreview is a truncated view of the edit's search text.
	SearchPreview string `json:"search_preview"`
}

// previewLen bounds SearchPreview.
const previewLen = 48

// preview truncates s for inclusion in per-edit status.
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLen {
		return s
	}
	return string(runes[:previewLen]) + "..."
}
