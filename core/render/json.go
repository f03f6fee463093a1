// Package render turns a site report into its output formats: JSON for
// downstream tools, a Markdown digest and a PDF digest for analysts.
package render

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/gaurav-prasanna/muniwatch/core"
)

// JSONRenderer writes the full report, every field of every document.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render marshals the report as indented JSON.
func (r *JSONRenderer) Render(report core.SiteReport) ([]byte, error) {
	if report.Documents == nil {
		report.Documents = []core.RankedDocument{}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "render: marshal json")
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// PertinentOnly returns a copy of report keeping only the documents the
// relevance scorer found pertinent.
func PertinentOnly(report core.SiteReport) core.SiteReport {
	kept := make([]core.RankedDocument, 0, len(report.Documents))
	for _, d := range report.Documents {
		if d.Relevance.Pertinent {
			kept = append(kept, d)
		}
	}
	report.Documents = kept
	return report
}

// New returns the renderer for a format name: json, markdown (or md) and pdf.
func New(format string) (core.Renderer, error) {
	switch format {
	case "json", "":
		return NewJSONRenderer(), nil
	case "markdown", "md":
		return NewMarkdownRenderer(), nil
	case "pdf":
		return NewPDFRenderer(), nil
	default:
		return nil, eris.Errorf("render: unknown format %q (want json, markdown or pdf)", format)
	}
}
