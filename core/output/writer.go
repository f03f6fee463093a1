// Package output writes rendered site reports and run summaries to disk.
// Report files are named after the site host and the generation time,
// e.g. crawl_www_ville_fr_20260320_100000.md.
package output

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, eris.Wrap(err, "output: working directory")
		}
		outputDir = wd
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "output: create directory %s", outputDir)
	}
	return &Writer{OutputDir: outputDir}, nil
}

// WriteReport stores one rendered site report and returns its path.
func (w *Writer) WriteReport(siteURL string, generatedAt time.Time, data []byte, ext string) (string, error) {
	name := ReportName(siteURL, generatedAt) + ext
	return w.write(name, data)
}

// WriteRun stores the JSON summary of a whole campaign run.
func (w *Writer) WriteRun(id string, run any) (string, error) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "output: marshal run")
	}
	return w.write("run_"+sanitize(id)+".json", data)
}

func (w *Writer) write(name string, data []byte) (string, error) {
	path := filepath.Join(w.OutputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "output: write %s", path)
	}
	zap.L().Debug("output written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// ReportName is the extension-less file name for a site report.
func ReportName(siteURL string, generatedAt time.Time) string {
	return "crawl_" + hostSlug(siteURL) + "_" + generatedAt.UTC().Format("20060102_150405")
}

func hostSlug(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return sanitize(strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://"))
	}
	return sanitize(parsed.Hostname())
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
