package edit

import (
	"reflect"
	"testing"
)

func TestFindOccurrences(t *testing.T) {
	tests := []struct {
		name   string
		buf    string
		search string
		fold   bool
		want   []Span
	}{
		{
			name:   "single match",
			buf:    "hello world",
			search: "world",
			want:   []Span{{6, 11}},
		},
		{
			name:   "multiple matches",
			buf:    "foo foo",
			search: "foo",
			want:   []Span{{0, 3}, {4, 7}},
		},
		{
			name:   "no match",
			buf:    "hello",
			search: "world",
			want:   nil,
		},
		{
			name:   "non-overlapping",
			buf:    "aaaa",
			search: "aa",
			want:   []Span{{0, 2}, {2, 4}},
		},
		{
			name:   "case sensitive by default",
			buf:    "Foo foo",
			search: "foo",
			want:   []Span{{4, 7}},
		},
		{
			name:   "case folded",
			buf:    "Foo foo FOO",
			search: "foo",
			fold:   true,
			want:   []Span{{0, 3}, {4, 7}, {8, 11}},
		},
		{
			name:   "folded unicode",
			buf:    "Größe",
			search: "grÖße",
			fold:   true,
			want:   []Span{{0, 7}},
		},
		{
			name:   "whitespace is exact",
			buf:    "a  b",
			search: "a b",
			want:   nil,
		},
		{
			name:   "empty search",
			buf:    "abc",
			search: "",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findOccurrences([]byte(tt.buf), tt.search, tt.fold)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("findOccurrences(%q, %q, %v) = %v, want %v",
					tt.buf, tt.search, tt.fold, got, tt.want)
			}
		})
	}
}

func TestFindOccurrencesFoldedWidth(t *testing.T) {
	// The Kelvin sign folds to 'k' but is 3 bytes wide; spans must
	// index the real buffer bytes.
	buf := []byte("Kelvin")
	spans := findOccurrences(buf, "kelvin", true)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Start != 0 || spans[0].End != len(buf) {
		t.Errorf("span = %+v, want {0 %d}", spans[0], len(buf))
	}
}

func TestLineOf(t *testing.T) {
	buf := []byte("one\ntwo\nthree\n")

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{3, 1},
		{4, 2},
		{8, 3},
		{len(buf), 4},
		{len(buf) + 10, 4}, // clamped
	}

	for _, tt := range tests {
		if got := lineOf(buf, tt.offset); got != tt.want {
			t.Errorf("lineOf(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestReplaceSpans(t *testing.T) {
	tests := []struct {
		name    string
		buf     string
		spans   []Span
		replace string
		want    string
	}{
		{
			name:    "single span",
			buf:     "hello world",
			spans:   []Span{{6, 11}},
			replace: "there",
			want:    "hello there",
		},
		{
			name:    "multiple spans keep earlier offsets valid",
			buf:     "foo foo foo",
			spans:   []Span{{0, 3}, {4, 7}, {8, 11}},
			replace: "longer",
			want:    "longer longer longer",
		},
		{
			name:    "deletion",
			buf:     "abc",
			spans:   []Span{{1, 2}},
			replace: "",
			want:    "ac",
		},
		{
			name:    "no spans",
			buf:     "abc",
			spans:   nil,
			replace: "x",
			want:    "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := replaceSpans([]byte(tt.buf), tt.spans, tt.replace)
			if string(got) != tt.want {
				t.Errorf("replaceSpans = %q, want %q", got, tt.want)
			}
		})
	}
}
