package diagnose

import (
	"bytes"
	"strings"
)

// noMatchContext finds the most plausible nearby location for missing
// search text by probing shrinking prefixes of it, and extracts a window
// of raw lines around the best hit. With no partial match at any length,
// it falls back to the head of the file.
func (c *Classifier) noMatchContext(text []byte, search string) *Context {
	if offset, ok := c.partialMatch(text, search); ok {
		line := lineAt(text, offset)
		return &Context{Snippet: lineWindow(text, line, c.noMatchWindow, c.noMatchWindow)}
	}
	return &Context{Snippet: headWindow(text, c.headLines)}
}

// ambiguousContext extracts a small window per occurrence, capped, and
// notes how many occurrences were omitted.
func (c *Classifier) ambiguousContext(text []byte, lines []int) *Context {
	ctx := &Context{}
	for i, line := range lines {
		if i >= c.maxLocations {
			ctx.Omitted = len(lines) - c.maxLocations
			break
		}
		ctx.Locations = append(ctx.Locations, Location{
			Line:    line,
			Snippet: lineWindow(text, line, c.ambiguousWindow, c.ambiguousWindow),
		})
	}
	return ctx
}

// partialMatch probes prefixes of search against text: the full text
// first, then successively halved prefixes down to the minimum length.
// Returns the byte offset of the first hit at the longest prefix that
// matches.
func (c *Classifier) partialMatch(text []byte, search string) (int, bool) {
	runes := []rune(search)
	for n := len(runes); n >= c.minPrefix; n /= 2 {
		prefix := []byte(string(runes[:n]))
		if idx := bytes.Index(text, prefix); idx >= 0 {
			return idx, true
		}
	}
	return 0, false
}

// lineAt returns the 1-based line number containing the byte offset.
func lineAt(text []byte, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return 1 + bytes.Count(text[:offset], []byte{'\n'})
}

// lineWindow returns the raw lines from line-before through line+after,
// clamped to the file. No line numbers are injected.
func lineWindow(text []byte, line, before, after int) string {
	lines := strings.Split(string(text), "\n")

	lo := line - 1 - before
	if lo < 0 {
		lo = 0
	}
	hi := line + after
	if hi > len(lines) {
		hi = len(lines)
	}
	if lo >= hi {
		return ""
	}
	return strings.Join(lines[lo:hi], "\n")
}

// headWindow returns the first n lines of the file.
func headWindow(text []byte, n int) string {
	lines := strings.Split(string(text), "\n")
	if n > len(lines) {
		n = len(lines)
	}
	return strings.Join(lines[:n], "\n")
}
