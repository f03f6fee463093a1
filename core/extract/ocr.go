package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "extract: %s: %s", name, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// OCROptions configures rasterization and recognition.
type OCROptions struct {
	PdfToPPMBin  string
	TesseractBin string
	DPI          int
	Languages    string
	MaxPages     int
	// Contrast is a percentage in [-100, 100]; Sharpen a gaussian sigma.
	Contrast float64
	Sharpen  float64
}

// OCR rasterizes PDF pages with pdftoppm, cleans each image (grayscale,
// contrast, sharpen) and recognizes it with tesseract. Pages are joined
// with "--- Page N ---" separators.
type OCR struct {
	opts OCROptions
	run  Runner
}

// NewOCR creates an OCR source. Zero options select 300 DPI, fra+eng and
// 20 pages.
func NewOCR(opts OCROptions) *OCR {
	if opts.PdfToPPMBin == "" {
		opts.PdfToPPMBin = "pdftoppm"
	}
	if opts.TesseractBin == "" {
		opts.TesseractBin = "tesseract"
	}
	if opts.DPI < 300 {
		opts.DPI = 300
	}
	if opts.Languages == "" {
		opts.Languages = "fra+eng"
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}
	return &OCR{opts: opts, run: ExecRunner}
}

// Name implements TextSource.
func (o *OCR) Name() string { return "ocr" }

var pageNumRe = regexp.MustCompile(`-(\d+)\.png$`)

// ExtractText implements TextSource.
func (o *OCR) ExtractText(ctx context.Context, pdfPath string) (string, int, error) {
	dir, err := os.MkdirTemp("", "muniwatch-ocr-")
	if err != nil {
		return "", 0, eris.Wrap(err, "extract: create ocr dir")
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	_, err = o.run(ctx, o.opts.PdfToPPMBin,
		"-r", strconv.Itoa(o.opts.DPI), "-png",
		"-f", "1", "-l", strconv.Itoa(o.opts.MaxPages),
		pdfPath, prefix)
	if err != nil {
		return "", 0, eris.Wrap(err, "extract: rasterize pdf")
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", 0, eris.Wrap(err, "extract: list page images")
	}
	if len(images) == 0 {
		return "", 0, eris.New("extract: pdftoppm produced no pages")
	}
	sort.Slice(images, func(i, j int) bool { return pageNumber(images[i]) < pageNumber(images[j]) })

	var sb strings.Builder
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		if err := o.prepare(img); err != nil {
			zap.L().Debug("extract: image cleanup failed, using raw page", zap.String("page", img), zap.Error(err))
		}
		out, err := o.run(ctx, o.opts.TesseractBin, img, "stdout", "-l", o.opts.Languages)
		if err != nil {
			zap.L().Debug("extract: tesseract failed", zap.String("page", img), zap.Error(err))
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- Page %d ---\n", i+1)
		sb.Write(out)
	}
	return sb.String(), len(images), nil
}

// prepare rewrites a page image in place, ready for recognition.
func (o *OCR) prepare(path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return eris.Wrap(err, "extract: open page image")
	}
	gray := imaging.Grayscale(img)
	if o.opts.Contrast != 0 {
		gray = imaging.AdjustContrast(gray, o.opts.Contrast)
	}
	if o.opts.Sharpen > 0 {
		gray = imaging.Sharpen(gray, o.opts.Sharpen)
	}
	if err := imaging.Save(gray, path); err != nil {
		return eris.Wrap(err, "extract: save page image")
	}
	return nil
}

func pageNumber(path string) int {
	m := pageNumRe.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
