package extract

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/normalize"
)

// TextSource extracts text from a PDF file on disk.
type TextSource interface {
	Name() string
	// ExtractText returns the text and, when known, the page count.
	ExtractText(ctx context.Context, pdfPath string) (text string, pages int, err error)
}

// PDFResult is the outcome of a layered PDF extraction.
type PDFResult struct {
	Text   string
	Pages  int
	Method core.ExtractionMethod
	Source string
}

// PDFExtractor tries its sources in order (text layer, secondary, OCR),
// stopping as soon as one yields MinChars characters. The longest text
// seen wins. Secondary and OCR may be nil.
type PDFExtractor struct {
	Primary   TextSource
	Secondary TextSource
	OCR       TextSource
	MinChars  int
}

// Extract writes data to a temporary file and runs the layered extraction.
func (p *PDFExtractor) Extract(ctx context.Context, data []byte) (*PDFResult, error) {
	minChars := p.MinChars
	if minChars <= 0 {
		minChars = DefaultMinChars
	}

	dir, err := os.MkdirTemp("", "muniwatch-pdf-")
	if err != nil {
		return nil, eris.Wrap(err, "extract: create temp dir")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, eris.Wrap(err, "extract: write temp pdf")
	}

	layers := []struct {
		src    TextSource
		method core.ExtractionMethod
	}{
		{p.Primary, core.MethodPDFText},
		{p.Secondary, core.MethodPDFText},
		{p.OCR, core.MethodPDFOCR},
	}

	var best PDFResult
	pages := 0
	for _, layer := range layers {
		if layer.src == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, n, err := layer.src.ExtractText(ctx, path)
		if n > pages {
			pages = n
		}
		if err != nil {
			zap.L().Debug("extract: pdf layer failed",
				zap.String("source", layer.src.Name()), zap.Error(err))
			continue
		}
		text = normalize.Text(text)
		if utf8.RuneCountInString(text) > utf8.RuneCountInString(best.Text) {
			best = PDFResult{Text: text, Method: layer.method, Source: layer.src.Name()}
		}
		if utf8.RuneCountInString(best.Text) >= minChars {
			break
		}
	}

	if utf8.RuneCountInString(best.Text) < minChars {
		return nil, eris.Wrapf(ErrUnsupportedOrEmpty, "extract: pdf yielded %d chars", utf8.RuneCountInString(best.Text))
	}
	best.Pages = pages
	return &best, nil
}

// TextLayer reads the embedded text layer with a pure-Go PDF parser.
type TextLayer struct{}

// Name implements TextSource.
func (TextLayer) Name() string { return "text-layer" }

// ExtractText implements TextSource. The parser panics on some malformed
// files; a panic is reported as an error.
func (TextLayer) ExtractText(_ context.Context, pdfPath string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("extract: pdf parser panic: %v", r)
		}
	}()

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", 0, eris.Wrap(err, "extract: read pdf")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, eris.Wrap(err, "extract: open pdf")
	}
	pages = r.NumPage()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", pages, eris.Wrap(err, "extract: read text layer")
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", pages, eris.Wrap(err, "extract: read text layer")
	}
	return string(b), pages, nil
}

// PdfToText extracts text using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
	run     Runner
}

// NewPdfToText creates a PdfToText source. If binPath is empty,
// "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath, run: ExecRunner}
}

// Name implements TextSource.
func (p *PdfToText) Name() string { return "pdftotext" }

// ExtractText runs pdftotext -layout on the given PDF and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, int, error) {
	out, err := p.run(ctx, p.binPath, "-layout", "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		return "", 0, eris.Wrapf(err, "extract: pdftotext failed for %s", pdfPath)
	}
	return string(out), 0, nil
}
