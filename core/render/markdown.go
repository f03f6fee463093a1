package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/chunk"
)

// DefaultExcerptWords is the length of the text excerpt shown per document.
const DefaultExcerptWords = 80

// MarkdownRenderer writes a digest of the report for reading.
type MarkdownRenderer struct {
	ExcerptWords int
}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{ExcerptWords: DefaultExcerptWords}
}

// Render returns the Markdown digest.
func (r *MarkdownRenderer) Render(report core.SiteReport) ([]byte, error) {
	return []byte(Digest(report, r.ExcerptWords)), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// Digest formats the report as Markdown: a header, the crawl diagnostics
// and one section per document in rank order.
func Digest(report core.SiteReport, excerptWords int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", report.Site.Label())
	fmt.Fprintf(&b, "- Campagne : %s\n", report.Campaign)
	fmt.Fprintf(&b, "- Site : %s\n", report.Site.URL)
	if report.Site.Department != "" {
		fmt.Fprintf(&b, "- Département : %s\n", report.Site.Department)
	}
	fmt.Fprintf(&b, "- Généré le : %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04"))

	d := report.Diagnostics
	b.WriteString("## Diagnostic\n\n")
	if d.ConnectionLost != "" {
		fmt.Fprintf(&b, "- Site injoignable : %s\n", d.ConnectionLost)
	}
	if d.Cancelled {
		b.WriteString("- Exploration interrompue avant la fin, résultats partiels\n")
	}
	fmt.Fprintf(&b, "- Pages visitées : %d\n", d.PagesVisited)
	fmt.Fprintf(&b, "- Documents analysés : %d (dont %d par OCR)\n", d.Attempted, d.OCRed)
	fmt.Fprintf(&b, "- Pertinents : %d, non pertinents : %d\n", d.Retained, d.Discarded)
	fmt.Fprintf(&b, "- Échecs : %d, hors fenêtre : %d, doublons : %d\n", d.Failed, d.OutOfWindow, d.Duplicates)
	if d.BelowMaturity > 0 {
		fmt.Fprintf(&b, "- Sous le seuil de maturité : %d\n", d.BelowMaturity)
	}
	if d.Disallowed > 0 {
		fmt.Fprintf(&b, "- Bloqués par robots.txt : %d\n", d.Disallowed)
	}
	fmt.Fprintf(&b, "- Score maximal : %d\n\n", d.MaxScore)

	fmt.Fprintf(&b, "## Documents (%d)\n\n", len(report.Documents))
	if len(report.Documents) == 0 {
		b.WriteString("Aucun document retenu.\n")
		return b.String()
	}
	for i, doc := range report.Documents {
		writeDocument(&b, i+1, doc, excerptWords)
	}
	return b.String()
}

func writeDocument(b *strings.Builder, n int, doc core.RankedDocument, excerptWords int) {
	name := doc.FileName
	if name == "" {
		name = doc.SourceURL
	}
	fmt.Fprintf(b, "### %d. %s\n\n", n, name)

	bd := doc.Breakdown
	fmt.Fprintf(b, "- Score : %d (fraîcheur %d, pertinence %d, signaux %d, source %d, maturité %d)\n",
		doc.Score, bd.Freshness, bd.Relevance, bd.Signals, bd.Source, bd.Maturity)
	fmt.Fprintf(b, "- Pertinence : %d / seuil %d%s\n", doc.Relevance.Score, doc.Relevance.Threshold, pertinentMark(doc.Relevance.Pertinent))
	fmt.Fprintf(b, "- Source : %s, %s\n", doc.Source, doc.SourceURL)
	if doc.PublishedAt != nil {
		fmt.Fprintf(b, "- Date : %s (%s)\n", doc.PublishedAt.Format("2006-01-02"), doc.DateStrategy)
	} else {
		b.WriteString("- Date : inconnue\n")
	}
	fmt.Fprintf(b, "- Extraction : %s, %d caractères\n", doc.Method, doc.CharCount)
	if kw := doc.Relevance.Matches.All(); len(kw) > 0 {
		fmt.Fprintf(b, "- Mots-clés : %s\n", strings.Join(kw, ", "))
	}
	if doc.Signals.Count() > 0 {
		var sig []string
		sig = append(sig, doc.Signals.Consultation...)
		sig = append(sig, doc.Signals.Budgetary...)
		sig = append(sig, doc.Signals.Reflection...)
		fmt.Fprintf(b, "- Signaux : %s\n", strings.Join(sig, ", "))
	}
	fmt.Fprintf(b, "- Maturité : %s\n", doc.Signals.Maturity)
	if op := doc.Analysis; op != nil {
		status := "non confirmé"
		if op.Confirmed {
			status = "confirmé"
		}
		fmt.Fprintf(b, "- Avis IA (%s) : %d/10, %s\n", op.Provider, op.Score, status)
		if op.Summary != "" {
			fmt.Fprintf(b, "- Résumé IA : %s\n", op.Summary)
		}
	}
	if ex := chunk.Excerpt(doc.Text, excerptWords); ex != "" {
		fmt.Fprintf(b, "\n> %s\n", ex)
	}
	b.WriteString("\n")
}

func pertinentMark(ok bool) string {
	if ok {
		return ", pertinent"
	}
	return ""
}
