// Package phrase finds which phrases of several ordered phrase sets occur in
// a text. Matching is case-insensitive substring search backed by an
// Aho-Corasick automaton, so one pass over the text serves every set.
package phrase

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Matcher is safe for concurrent use once built.
type Matcher struct {
	sets    [][]string
	mu      sync.Mutex // the automaton keeps per-match scratch state
	ac      *ahocorasick.Matcher
	targets [][]ref // dictionary index -> positions in sets
}

type ref struct {
	set, pos int
}

// New builds a Matcher over the given phrase sets. Empty phrases are ignored.
func New(sets ...[]string) *Matcher {
	m := &Matcher{sets: sets}

	index := make(map[string]int)
	var dict []string
	for si, set := range sets {
		for pi, p := range set {
			key := Fold(p)
			if key == "" {
				continue
			}
			i, ok := index[key]
			if !ok {
				i = len(dict)
				index[key] = i
				dict = append(dict, key)
				m.targets = append(m.targets, nil)
			}
			m.targets[i] = append(m.targets[i], ref{set: si, pos: pi})
		}
	}
	if len(dict) > 0 {
		m.ac = ahocorasick.NewStringMatcher(dict)
	}
	return m
}

// Match returns, for each set, the phrases found in text. Phrases keep their
// configured spelling and order; each appears at most once.
func (m *Matcher) Match(text string) [][]string {
	out := make([][]string, len(m.sets))
	if m.ac == nil || text == "" {
		return out
	}

	found := make([][]bool, len(m.sets))
	for i, set := range m.sets {
		found[i] = make([]bool, len(set))
	}
	m.mu.Lock()
	hits := m.ac.Match([]byte(Fold(text)))
	m.mu.Unlock()
	for _, hit := range hits {
		for _, r := range m.targets[hit] {
			found[r.set][r.pos] = true
		}
	}

	for si, set := range m.sets {
		seen := make(map[string]bool)
		for pi, p := range set {
			key := Fold(p)
			if found[si][pi] && !seen[key] {
				seen[key] = true
				out[si] = append(out[si], p)
			}
		}
	}
	return out
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// Fold lower-cases s, straightens typographic apostrophes and collapses
// whitespace runs, so that phrases split across PDF line breaks still match.
// Accents are kept.
func Fold(s string) string {
	s = cases.Lower(language.French).String(s)
	s = apostrophes.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
