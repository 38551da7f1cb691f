package edit

import (
	"bytes"
	"unicode"
	"unicode/utf8"
)

// Span is a half-open byte range [Start, End) in a buffer.
// For case-folded matches End-Start may differ from len(search), since
// folded rune pairs can differ in encoded width.
type Span struct {
	Start int
	End   int
}

// findOccurrences returns every non-overlapping occurrence of search in
// buf, left to right. Matching is byte-exact unless fold is set, in which
// case runes are compared under Unicode simple case folding against the
// original buffer, so spans always index real bytes.
func findOccurrences(buf []byte, search string, fold bool) []Span {
	if search == "" {
		return nil
	}

	var spans []Span
	if !fold {
		needle := []byte(search)
		for i := 0; i <= len(buf)-len(needle); {
			j := bytes.Index(buf[i:], needle)
			if j < 0 {
				break
			}
			start := i + j
			spans = append(spans, Span{Start: start, End: start + len(needle)})
			i = start + len(needle)
		}
		return spans
	}

	for i := 0; i < len(buf); {
		if end, ok := foldMatchAt(buf, i, search); ok {
			spans = append(spans, Span{Start: i, End: end})
			i = end
			continue
		}
		_, size := utf8.DecodeRune(buf[i:])
		i += size
	}
	return spans
}

// foldMatchAt reports whether search matches buf at offset under simple
// case folding, returning the end offset of the match.
func foldMatchAt(buf []byte, offset int, search string) (int, bool) {
	i := offset
	for _, sr := range search {
		if i >= len(buf) {
			return 0, false
		}
		br, size := utf8.DecodeRune(buf[i:])
		if !runesEqualFold(br, sr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

// runesEqualFold reports whether two runes are equal under Unicode
// simple case folding.
func runesEqualFold(a, b rune) bool {
	if a == b {
		return true
	}
	r := unicode.SimpleFold(a)
	for r != a {
		if r == b {
			return true
		}
		r = unicode.SimpleFold(r)
	}
	return false
}

// lineOf returns the 1-based line number containing the byte offset.
func lineOf(buf []byte, offset int) int {
	if offset > len(buf) {
		offset = len(buf)
	}
	return 1 + bytes.Count(buf[:offset], []byte{'\n'})
}

// replaceSpans substitutes replace into buf at each span, scanning end to
// start so earlier offsets stay valid.
func replaceSpans(buf []byte, spans []Span, replace string) []byte {
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		next := make([]byte, 0, len(buf)-(s.End-s.Start)+len(replace))
		next = append(next, buf[:s.Start]...)
		next = append(next, replace...)
		next = append(next, buf[s.End:]...)
		buf = next
	}
	return buf
}
