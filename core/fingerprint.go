package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// FingerprintPrefix is the number of leading characters hashed.
const FingerprintPrefix = 500

// Fingerprint hashes the first FingerprintPrefix characters of text, after
// trimming surrounding whitespace.
func Fingerprint(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > FingerprintPrefix {
		text = string([]rune(text)[:FingerprintPrefix])
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Truncate caps s at max characters. max <= 0 leaves s untouched.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
