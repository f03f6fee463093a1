// Package chunk cuts document text to size at word boundaries, for AI
// review payloads and report excerpts.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TruncatedMarker is appended to text cut by Truncate.
const TruncatedMarker = "\n\n[...document tronqué...]"

// Truncate returns text unchanged when it holds at most maxChars runes.
// Otherwise it cuts at the last whitespace before maxChars (or at
// maxChars when there is none) and appends TruncatedMarker.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	cut := cutIndex(text, maxChars)
	return strings.TrimRightFunc(text[:cut], unicode.IsSpace) + TruncatedMarker
}

// Excerpt returns the first maxWords words of text joined by single
// spaces, with "…" when words were dropped.
func Excerpt(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "…"
}

// cutIndex is the byte offset of the last word boundary within the first
// maxChars runes.
func cutIndex(text string, maxChars int) int {
	end, n := 0, 0
	lastSpace := -1
	for i, r := range text {
		if n == maxChars {
			break
		}
		if unicode.IsSpace(r) {
			lastSpace = i
		}
		end = i + utf8.RuneLen(r)
		n++
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); unicode.IsSpace(r) {
			return end
		}
	}
	if lastSpace > 0 {
		return lastSpace
	}
	return end
}
