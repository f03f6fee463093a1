// Package dates infers a best-effort publication date for a document from
// its HTML markup, its text, its file name or its HTTP headers.
//
// Dates are timezone-naive: the wall clock of the source is kept and
// stored as UTC.
package dates

import (
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Strategy names where a date came from.
type Strategy string

const (
	StrategyTime     Strategy = "time"
	StrategyMeta     Strategy = "meta"
	StrategyText     Strategy = "text"
	StrategyFilename Strategy = "filename"
	StrategyFeed     Strategy = "feed"
	StrategyHeader   Strategy = "last-modified"
)

// Confidence grades how precise an inferred date is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Inference is one inferred date.
type Inference struct {
	Date       time.Time
	Strategy   Strategy
	Confidence Confidence
}

// DefaultTextScan bounds how much body text is searched for a date.
const DefaultTextScan = 20000

// Inferencer runs the strategies in order; the first success wins:
// <time>/<date> elements, meta tags, body text, then file name.
type Inferencer struct {
	TextScan int
}

// New creates an Inferencer with default limits.
func New() *Inferencer {
	return &Inferencer{TextScan: DefaultTextScan}
}

// Infer returns the document date, or false when none can be found.
// html may be empty for non-HTML documents.
func (i *Inferencer) Infer(html, text, rawURL string) (Inference, bool) {
	if strings.TrimSpace(html) != "" {
		if inf, ok := FromHTML(html); ok {
			return inf, true
		}
	}
	scan := text
	if i.TextScan > 0 && len(scan) > i.TextScan {
		scan = scan[:i.TextScan]
	}
	if d, ok := FromText(scan); ok {
		return Inference{Date: d, Strategy: StrategyText, Confidence: ConfidenceHigh}, true
	}
	return FromURL(rawURL)
}

// metaKeys are the recognised meta tag names, best first.
var metaKeys = []string{
	"og:published_time",
	"article:published_time",
	"article:modified_time",
	"dc.date",
	"dc.date.issued",
	"dcterms.date",
	"datepublished",
}

// FromHTML looks at <time>/<date> elements, then at meta tags.
func FromHTML(html string) (Inference, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Inference{}, false
	}

	var found time.Time
	doc.Find("time, date").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("datetime"); ok {
			if t, ok := ParseFlexible(v); ok {
				found = t
				return false
			}
		}
		if t, ok := FromText(s.Text()); ok {
			found = t
			return false
		}
		if t, ok := ParseFlexible(strings.TrimSpace(s.Text())); ok {
			found = t
			return false
		}
		return true
	})
	if !found.IsZero() {
		return Inference{Date: found, Strategy: StrategyTime, Confidence: ConfidenceHigh}, true
	}

	values := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := s.AttrOr("property", "")
		if key == "" {
			key = s.AttrOr("name", "")
		}
		if key == "" {
			key = s.AttrOr("itemprop", "")
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if _, seen := values[key]; !seen && key != "" {
			values[key] = s.AttrOr("content", "")
		}
	})
	for _, key := range metaKeys {
		if v, ok := values[key]; ok {
			if t, ok := ParseFlexible(v); ok {
				return Inference{Date: t, Strategy: StrategyMeta, Confidence: ConfidenceHigh}, true
			}
		}
	}
	return Inference{}, false
}

var (
	publishedRe = regexp.MustCompile(`publiee?s?\s+le\s+(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})`)
	monthTextRe = regexp.MustCompile(`\b(\d{1,2})(?:er)?\s+(` + fullMonthAlternation + `)\s+(\d{4})\b`)
	isoTextRe   = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
)

// FromText finds "publié le DD/MM/YYYY", "DD <mois> YYYY" or
// YYYY-MM-DD / YYYY/MM/DD in text, in that order of preference.
func FromText(text string) (time.Time, bool) {
	folded := foldAccents(strings.ToLower(text))

	for _, m := range publishedRe.FindAllStringSubmatch(folded, -1) {
		if t, ok := build(m[3], m[2], m[1]); ok {
			return t, true
		}
	}
	for _, m := range monthTextRe.FindAllStringSubmatch(folded, -1) {
		month := months[m[2]]
		if t, ok := build(m[3], strconv.Itoa(month), m[1]); ok {
			return t, true
		}
	}
	for _, m := range isoTextRe.FindAllStringSubmatch(folded, -1) {
		if t, ok := build(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// FromURL infers a date from the file name carried by a URL: the last path
// segment, or a CMS file parameter such as ?path=... or ?file=....
func FromURL(rawURL string) (Inference, bool) {
	if rawURL == "" {
		return Inference{}, false
	}
	return FromFilename(FileName(rawURL))
}

// FileName extracts a document file name from a URL.
func FileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	for _, key := range []string{"path", "file", "fichier", "filename", "doc"} {
		if v := u.Query().Get(key); v != "" {
			return path.Base(v)
		}
	}
	name := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "/" || name == "." {
		return ""
	}
	return name
}

var (
	fnISORe     = regexp.MustCompile(`(\d{4})[-_.](\d{2})[-_.](\d{2})`)
	fnCompactRe = regexp.MustCompile(`(?:^|\D)(\d{4})(\d{2})(\d{2})(?:\D|$)`)
	fnMonthRe   = regexp.MustCompile(`(?:^|[^a-z])(` + fileMonthAlternation + `)[-_\s]*(\d{4})`)
	fnMMYYYYRe  = regexp.MustCompile(`[-_](\d{2})[-_](\d{4})`)
	fnYearRe    = regexp.MustCompile(`(?:^|\D)(20\d{2})(?:\D|$)`)
)

// FromFilename recognises, most precise first: YYYY-MM-DD (also _ or .),
// YYYYMMDD, month-name + year, MM-YYYY and a bare 20YY. Month-level dates
// fall on the 15th, year-only dates on January 15th.
func FromFilename(name string) (Inference, bool) {
	name = foldAccents(strings.ToLower(name))
	if name == "" {
		return Inference{}, false
	}

	if m := fnISORe.FindStringSubmatch(name); m != nil {
		if t, ok := build(m[1], m[2], m[3]); ok {
			return Inference{Date: t, Strategy: StrategyFilename, Confidence: ConfidenceHigh}, true
		}
	}
	if m := fnCompactRe.FindStringSubmatch(name); m != nil {
		if t, ok := build(m[1], m[2], m[3]); ok {
			return Inference{Date: t, Strategy: StrategyFilename, Confidence: ConfidenceHigh}, true
		}
	}
	if m := fnMonthRe.FindStringSubmatch(name); m != nil {
		if t, ok := build(m[2], strconv.Itoa(months[m[1]]), "15"); ok {
			return Inference{Date: t, Strategy: StrategyFilename, Confidence: ConfidenceMedium}, true
		}
	}
	if m := fnMMYYYYRe.FindStringSubmatch(name); m != nil {
		if t, ok := build(m[2], m[1], "15"); ok {
			return Inference{Date: t, Strategy: StrategyFilename, Confidence: ConfidenceMedium}, true
		}
	}
	if m := fnYearRe.FindStringSubmatch(name); m != nil {
		if t, ok := build(m[1], "1", "15"); ok {
			return Inference{Date: t, Strategy: StrategyFilename, Confidence: ConfidenceLow}, true
		}
	}
	return Inference{}, false
}

// FromHeader reads Last-Modified, falling back to Date.
func FromHeader(h http.Header) (time.Time, bool) {
	for _, key := range []string{"Last-Modified", "Date"} {
		if v := h.Get(key); v != "" {
			if t, err := http.ParseTime(v); err == nil {
				return Naive(t), true
			}
		}
	}
	return time.Time{}, false
}

var flexibleLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	time.RFC1123Z,
	time.RFC1123,
	"20060102",
}

// ParseFlexible parses the machine formats found in markup attributes.
func ParseFlexible(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range flexibleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if !plausibleYear(t.Year()) {
				return time.Time{}, false
			}
			return Naive(t), true
		}
	}
	return time.Time{}, false
}

// Naive drops the zone, keeping the wall clock.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Day truncates t to midnight of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InWindow reports whether a document dated date is recent enough. An
// unknown date is always inside; the boundary day is inside.
func InWindow(date *time.Time, now time.Time, windowDays int) bool {
	if date == nil {
		return true
	}
	cutoff := Day(now).AddDate(0, 0, -windowDays)
	return !Day(*date).Before(cutoff)
}

func build(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if !plausibleYear(y) || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false // e.g. 31/02
	}
	return t, true
}

func plausibleYear(y int) bool {
	return y >= 1990 && y <= 2100
}
