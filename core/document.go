package core

import (
	"strings"
	"time"
)

// SourceType labels the section a candidate was discovered in.
type SourceType string

const (
	SourceRSS          SourceType = "rss"
	SourceDeliberation SourceType = "deliberation"
	SourceActualites   SourceType = "actualites"
	SourceBulletin     SourceType = "bulletin"
	SourceBudget       SourceType = "budget"
	SourceGenerique    SourceType = "generique"
)

// Weight is the ranking contribution of the source type.
func (s SourceType) Weight() int {
	switch s {
	case SourceRSS, SourceDeliberation:
		return 2
	case SourceActualites, SourceBulletin:
		return 1
	default:
		return 0
	}
}

var sourceTypes = []SourceType{
	SourceRSS, SourceDeliberation, SourceActualites, SourceBulletin, SourceBudget, SourceGenerique,
}

// ParseSourceType accepts the six source labels, case-insensitively.
func ParseSourceType(s string) (SourceType, bool) {
	st := SourceType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range sourceTypes {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// Site is one municipal web site to crawl.
type Site struct {
	Name       string `json:"name" mapstructure:"name"`
	Department string `json:"department,omitempty" mapstructure:"department"`
	URL        string `json:"url" mapstructure:"url"`
}

// Label returns the site name, falling back to its URL.
func (s Site) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.URL
}

// Candidate is a URL discovered during navigation and not yet fetched.
type Candidate struct {
	URL        string
	Source     SourceType
	Depth      int
	Tier       int
	Section    string // page the link was found on
	Title      string
	FileName   string
	IsDocument bool
	// KnownDate is set when the date is known before download (feed entries).
	KnownDate *time.Time
}

// ExtractionMethod records how a document's text was obtained.
type ExtractionMethod string

const (
	MethodHTML    ExtractionMethod = "html"
	MethodPDFText ExtractionMethod = "pdf-text"
	MethodPDFOCR  ExtractionMethod = "pdf-ocr"
	MethodOffice  ExtractionMethod = "office-text"
)

// ExtractedDocument is the text of one downloaded candidate.
type ExtractedDocument struct {
	FileName    string           `json:"file_name"`
	SourceURL   string           `json:"source_url"`
	SiteURL     string           `json:"site_url"`
	Text        string           `json:"text"`
	Method      ExtractionMethod `json:"method"`
	ByteSize    int64            `json:"byte_size"`
	Pages       int              `json:"pages"`
	CharCount   int              `json:"char_count"`
	Fingerprint string           `json:"fingerprint"`

	// HTML keeps the raw page for date inference; dropped once scored.
	HTML string `json:"-"`
	// LastModified is the server-declared modification time, if any.
	LastModified *time.Time `json:"-"`
}

// Matches holds matched keyword phrases per category, in campaign order.
type Matches struct {
	Priority  []string `json:"priority"`
	Secondary []string `json:"secondary"`
	Budget    []string `json:"budget"`
}

// All returns every matched phrase, priority first.
func (m Matches) All() []string {
	out := make([]string, 0, len(m.Priority)+len(m.Secondary)+len(m.Budget))
	out = append(out, m.Priority...)
	out = append(out, m.Secondary...)
	return append(out, m.Budget...)
}

// RelevanceResult is the keyword score of a text.
type RelevanceResult struct {
	Score     int     `json:"score"`
	Threshold int     `json:"threshold"`
	Pertinent bool    `json:"pertinent"`
	Matches   Matches `json:"matches"`
}

// Maturity is the inferred project lifecycle stage.
type Maturity string

const (
	MaturityReflexion     Maturity = "reflexion"
	MaturityEtude         Maturity = "etude"
	MaturityProgrammation Maturity = "programmation"
	MaturityConsultation  Maturity = "consultation"
)

var maturityRanks = map[Maturity]int{
	MaturityReflexion:     1,
	MaturityEtude:         2,
	MaturityProgrammation: 3,
	MaturityConsultation:  4,
}

// Rank orders maturities low to high; unknown values rank 0.
func (m Maturity) Rank() int { return maturityRanks[m] }

// Bonus is the ranking bonus carried by the maturity level.
func (m Maturity) Bonus() int { return maturityRanks[m] }

// ParseMaturity accepts the four maturity labels, case-insensitively.
// An empty string means reflexion.
func ParseMaturity(s string) (Maturity, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return MaturityReflexion, true
	}
	m := Maturity(s)
	_, ok := maturityRanks[m]
	return m, ok
}

// SignalResult lists the weak-signal phrases found in a text.
type SignalResult struct {
	Budgetary    []string `json:"budgetary"`
	Reflection   []string `json:"reflection"`
	Consultation []string `json:"consultation"`
	Maturity     Maturity `json:"maturity"`
	Bonus        int      `json:"bonus"`
}

// Count is the number of matched phrases across all categories.
func (s SignalResult) Count() int {
	return len(s.Budgetary) + len(s.Reflection) + len(s.Consultation)
}

// ScoreBreakdown shows each term of the composite score.
type ScoreBreakdown struct {
	Freshness int `json:"freshness"`
	Relevance int `json:"relevance"`
	Signals   int `json:"signals"`
	Source    int `json:"source"`
	Maturity  int `json:"maturity"`
}

// Total sums the breakdown.
func (b ScoreBreakdown) Total() int {
	return b.Freshness + b.Relevance + b.Signals + b.Source + b.Maturity
}

// Opinion is an AI reviewer's verdict on a document.
type Opinion struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	Pertinent     bool   `json:"pertinent"`
	Score         int    `json:"score"`
	Summary       string `json:"summary"`
	Justification string `json:"justification"`
	Confirmed     bool   `json:"confirmed"`
}

// RankedDocument is the unit returned to callers.
type RankedDocument struct {
	ExtractedDocument

	Relevance    RelevanceResult `json:"relevance"`
	Signals      SignalResult    `json:"signals"`
	PublishedAt  *time.Time      `json:"published_at,omitempty"`
	DateStrategy string          `json:"date_strategy,omitempty"`
	Score        int             `json:"score"`
	Breakdown    ScoreBreakdown  `json:"score_breakdown"`
	Source       SourceType      `json:"source_type"`
	Section      string          `json:"section,omitempty"`
	Order        int             `json:"discovery_order"`
	Analysis     *Opinion        `json:"analysis,omitempty"`
}

// Diagnostics summarises one site crawl.
type Diagnostics struct {
	PagesVisited   int    `json:"pages_visited"`
	Attempted      int    `json:"documents_attempted"`
	OCRed          int    `json:"documents_ocred"`
	Retained       int    `json:"documents_retained"`
	Discarded      int    `json:"documents_discarded"`
	Failed         int    `json:"documents_failed"`
	OutOfWindow    int    `json:"documents_out_of_window"`
	Duplicates     int    `json:"documents_duplicate"`
	BelowMaturity  int    `json:"documents_below_maturity"`
	Disallowed     int    `json:"documents_disallowed"`
	MaxScore       int    `json:"max_score"`
	FinalState     string `json:"final_state"`
	Cancelled      bool   `json:"cancelled"`
	ConnectionLost string `json:"connection_error,omitempty"`
}

// SiteReport is what renderers consume.
type SiteReport struct {
	Campaign    string           `json:"campaign"`
	Site        Site             `json:"site"`
	GeneratedAt time.Time        `json:"generated_at"`
	Documents   []RankedDocument `json:"documents"`
	Diagnostics Diagnostics      `json:"diagnostics"`
}
