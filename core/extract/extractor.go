// Package extract turns downloaded candidates into plain text.
//
// HTML pages go through readability first and fall back to a noise-strip
// of the page's main container. PDFs go through a text layer, then the
// pdftotext CLI, then OCR; the longest result wins. DOCX and ODT are read
// from their zipped XML.
package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/normalize"
)

// DefaultMinChars is the shortest text considered usable.
const DefaultMinChars = 100

// noiseSelectors are HTML elements removed before fallback extraction.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
	".breadcrumb", ".cookie", "#cookie-banner", ".share", ".social",
}

// HTMLExtractor returns the main text of an HTML page.
type HTMLExtractor struct {
	normalizer core.Normalizer
	minChars   int
}

// NewHTML creates an HTMLExtractor. A nil normalizer selects
// normalize.TextNormalizer.
func NewHTML(n core.Normalizer, minChars int) *HTMLExtractor {
	if n == nil {
		n = normalize.New()
	}
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &HTMLExtractor{normalizer: n, minChars: minChars}
}

// Extract returns the page title and its main text. Readability runs
// first; the noise-strip fallback runs when readability yields fewer than
// minChars characters, and the longer of the two wins.
func (e *HTMLExtractor) Extract(html, pageURL string) (title, text string, err error) {
	title, text = e.readable(html, pageURL)
	if utf8.RuneCountInString(text) >= e.minChars {
		return title, text, nil
	}

	fallbackTitle, fallback, err := e.stripped(html)
	if err != nil {
		if text != "" {
			return title, text, nil
		}
		return "", "", err
	}
	if title == "" {
		title = fallbackTitle
	}
	if utf8.RuneCountInString(fallback) > utf8.RuneCountInString(text) {
		text = fallback
	}
	return title, text, nil
}

func (e *HTMLExtractor) readable(html, pageURL string) (string, string) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", ""
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(article.Title), normalize.Text(article.TextContent)
}

// stripped removes noise elements and normalizes the best content
// container: <main>, then <article>, then <body>.
func (e *HTMLExtractor) stripped(html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", eris.Wrap(err, "extract: parse html")
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		return title, "", eris.New("extract: no content container found in html")
	}

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return title, "", eris.Wrap(err, "extract: serialize content")
	}
	text, err := e.normalizer.Normalize(fragment)
	if err != nil {
		return title, "", err
	}
	return title, text, nil
}
