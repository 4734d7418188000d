// Package excerpt builds the content preview shown for each search result: a
// bounded window of text around the first match, split into highlighted segments.
//
// Matching is case-insensitive and rune based. Both the content and the term are
// NFC-normalised first so that "é" typed as one rune matches "e" + combining acute.
package excerpt

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultWindow is the preview length, in characters.
const DefaultWindow = 150

// Ellipsis marks a truncated side of an excerpt.
const Ellipsis = "..."

// Segment is a run of text, Matched when it equals the search term.
type Segment struct {
	Text    string
	Matched bool
}

// ExtractContext returns the part of content surrounding the first occurrence of term.
//
// With an empty or absent term it returns the first window characters followed by
// an ellipsis. Otherwise the window spans window/2 characters on each side of the
// match and an ellipsis is added on every truncated side.
func ExtractContext(content, term string, window int) string {
	if window <= 0 {
		window = DefaultWindow
	}
	src := []rune(norm.NFC.String(content))

	i := -1
	var termLen int
	if term != "" {
		t := []rune(norm.NFC.String(term))
		termLen = len(t)
		i = indexFold(src, t, 0)
	}
	if i < 0 {
		return string(src[:min(window, len(src))]) + Ellipsis
	}

	start := max(0, i-window/2)
	end := min(len(src), i+termLen+window/2)

	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	b.WriteString(string(src[start:end]))
	if end < len(src) {
		b.WriteString(Ellipsis)
	}
	return b.String()
}

// Highlight splits text on every non-overlapping case-insensitive occurrence of
// term. The original casing of text is preserved. An empty term yields text as a
// single unmatched segment.
func Highlight(text, term string) []Segment {
	text = norm.NFC.String(text)
	if text == "" {
		return nil
	}
	if term == "" {
		return []Segment{{Text: text}}
	}

	src := []rune(text)
	t := []rune(norm.NFC.String(term))

	var out []Segment
	last := 0
	for from := 0; ; {
		i := indexFold(src, t, from)
		if i < 0 {
			break
		}
		if i > last {
			out = append(out, Segment{Text: string(src[last:i])})
		}
		out = append(out, Segment{Text: string(src[i : i+len(t)]), Matched: true})
		last = i + len(t)
		from = last
	}
	if last < len(src) {
		out = append(out, Segment{Text: string(src[last:])})
	}
	return out
}

// Preview is Highlight applied to ExtractContext.
func Preview(content, term string, window int) []Segment {
	return Highlight(ExtractContext(content, term, window), term)
}

// indexFold returns the rune index of the first case-insensitive occurrence of
// t in src at or after from, or -1.
func indexFold(src, t []rune, from int) int {
	if len(t) == 0 {
		return -1
	}
	for i := from; i+len(t) <= len(src); i++ {
		if equalFoldAt(src, t, i) {
			return i
		}
	}
	return -1
}

func equalFoldAt(src, t []rune, at int) bool {
	for j, r := range t {
		if !equalFold(src[at+j], r) {
			return false
		}
	}
	return true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	return unicode.ToLower(a) == unicode.ToLower(b) || unicode.ToUpper(a) == unicode.ToUpper(b)
}
