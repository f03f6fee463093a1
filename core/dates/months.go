package dates

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// months maps accent-free French (and a few English) month spellings to
// month numbers.
var months = map[string]int{
	"janvier": 1, "janv": 1, "jan": 1,
	"fevrier": 2, "fevr": 2, "fev": 2,
	"mars": 3, "mar": 3,
	"avril": 4, "avr": 4,
	"mai": 5, "may": 5,
	"juin": 6, "jun": 6,
	"juillet": 7, "juil": 7, "jul": 7,
	"aout": 8, "aug": 8,
	"septembre": 9, "sept": 9, "sep": 9,
	"octobre": 10, "oct": 10,
	"novembre": 11, "nov": 11,
	"decembre": 12, "dec": 12,
}

const fullMonthAlternation = `janvier|fevrier|mars|avril|mai|juin|juillet|aout|septembre|octobre|novembre|decembre`

// Longest spellings first: Go regexp alternation is leftmost-first.
const fileMonthAlternation = `janvier|janv|jan|fevrier|fevr|fev|mars|mar|avril|avr|mai|may|` +
	`juillet|juil|jul|juin|jun|aout|aug|septembre|sept|sep|octobre|oct|novembre|nov|decembre|dec`

// foldAccents strips combining marks: "décembre" becomes "decembre".
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
