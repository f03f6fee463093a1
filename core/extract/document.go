package extract

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rotisserie/eris"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/dates"
)

// Candidate-level failures. Neither aborts a crawl.
var (
	ErrDownloadFailed     = errors.New("extract: download failed")
	ErrUnsupportedOrEmpty = errors.New("extract: unsupported or empty document")
)

// DefaultMaxChars caps the stored text of a document.
const DefaultMaxChars = 50000

// Options bounds document extraction.
type Options struct {
	MinChars int
	MaxChars int
}

// Extractor downloads a candidate, detects its kind from the body and
// dispatches to the HTML, PDF or office extractor.
type Extractor struct {
	fetcher core.Fetcher
	html    *HTMLExtractor
	pdf     *PDFExtractor
	opts    Options
}

// New creates an Extractor. pdf may be nil to skip PDFs.
func New(f core.Fetcher, html *HTMLExtractor, pdf *PDFExtractor, opts Options) *Extractor {
	if opts.MinChars <= 0 {
		opts.MinChars = DefaultMinChars
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if html == nil {
		html = NewHTML(nil, opts.MinChars)
	}
	return &Extractor{fetcher: f, html: html, pdf: pdf, opts: opts}
}

// Kind classifies a downloaded body.
type Kind string

const (
	KindHTML    Kind = "html"
	KindPDF     Kind = "pdf"
	KindDOCX    Kind = "docx"
	KindODT     Kind = "odt"
	KindUnknown Kind = "unknown"
)

// DetectKind sniffs the body first and trusts the declared content type or
// the file extension only when sniffing is inconclusive.
func DetectKind(body []byte, contentType, fileName string) Kind {
	mt := mimetype.Detect(body)
	switch {
	case mt.Is("application/pdf"):
		return KindPDF
	case mt.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return KindDOCX
	case mt.Is("application/vnd.oasis.opendocument.text"):
		return KindODT
	case mt.Is("text/html"), mt.Is("application/xhtml+xml"):
		return KindHTML
	}

	ext := strings.ToLower(path.Ext(fileName))
	ct := strings.ToLower(contentType)
	switch {
	case mt.Is("application/zip") && ext == ".docx":
		return KindDOCX
	case mt.Is("application/zip") && ext == ".odt":
		return KindODT
	case strings.Contains(ct, "html"):
		return KindHTML
	case strings.HasPrefix(mt.String(), "text/plain") && ext != ".pdf" && ext != ".doc":
		return KindHTML
	}
	return KindUnknown
}

// Extract implements core.DocumentExtractor.
func (e *Extractor) Extract(ctx context.Context, c core.Candidate, siteURL string) (*core.ExtractedDocument, error) {
	res, err := e.fetcher.Fetch(ctx, c.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, eris.Wrapf(ErrDownloadFailed, "extract: %s: %v", c.URL, err)
	}

	name := c.FileName
	if name == "" {
		name = dates.FileName(res.URL)
	}

	doc := &core.ExtractedDocument{
		FileName:  name,
		SourceURL: c.URL,
		SiteURL:   siteURL,
		ByteSize:  int64(len(res.Body)),
	}
	if res.Header.Get("Last-Modified") != "" {
		if t, ok := dates.FromHeader(res.Header); ok {
			doc.LastModified = &t
		}
	}

	switch kind := DetectKind(res.Body, res.ContentType, name); kind {
	case KindHTML:
		title, text, err := e.html.Extract(string(res.Body), res.URL)
		if err != nil {
			return nil, eris.Wrapf(ErrUnsupportedOrEmpty, "extract: %s: %v", c.URL, err)
		}
		if c.FileName == "" {
			doc.FileName = pageName(title, res.URL)
		}
		doc.Text = text
		doc.Method = core.MethodHTML
		doc.Pages = 1
		doc.HTML = string(res.Body)
	case KindPDF:
		if e.pdf == nil {
			return nil, eris.Wrapf(ErrUnsupportedOrEmpty, "extract: %s: pdf extraction disabled", c.URL)
		}
		pr, err := e.pdf.Extract(ctx, res.Body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, eris.Wrapf(ErrUnsupportedOrEmpty, "extract: %s: %v", c.URL, err)
		}
		doc.Text = pr.Text
		doc.Method = pr.Method
		doc.Pages = pr.Pages
	case KindDOCX, KindODT:
		text, err := OfficeText(res.Body, string(kind))
		if err != nil {
			return nil, eris.Wrapf(ErrUnsupportedOrEmpty, "extract: %s: %v", c.URL, err)
		}
		doc.Text = text
		doc.Method = core.MethodOffice
	default:
		return nil, eris.Wrapf(ErrUnsupportedOrEmpty, "extract: %s: unsupported content", c.URL)
	}

	if utf8.RuneCountInString(strings.TrimSpace(doc.Text)) < e.opts.MinChars {
		return nil, eris.Wrapf(ErrUnsupportedOrEmpty, "extract: %s: text too short", c.URL)
	}
	doc.Text = core.Truncate(doc.Text, e.opts.MaxChars)
	doc.CharCount = utf8.RuneCountInString(doc.Text)
	doc.Fingerprint = core.Fingerprint(doc.Text)
	return doc, nil
}

// pageName names an HTML page after its title, or its URL path.
func pageName(title, rawURL string) string {
	if title != "" {
		return title
	}
	u, err := url.Parse(rawURL)
	if err != nil || strings.Trim(u.Path, "/") == "" {
		return rawURL
	}
	return strings.Trim(u.Path, "/")
}
