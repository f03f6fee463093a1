// Package core defines the domain types and the stage interfaces of the
// muniwatch pipeline. Each stage is a small interface so the orchestrator
// can be exercised with fakes.
package core

import (
	"context"
	"net/http"
)

// FetchResult holds the raw body and response metadata from a fetch.
type FetchResult struct {
	URL         string // final URL after redirects
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte
}

// Fetcher retrieves resources over HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
	// Head issues a HEAD request; Body is always empty.
	Head(ctx context.Context, url string) (*FetchResult, error)
}

// Normalizer turns an HTML fragment into plain text.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// DocumentExtractor downloads a candidate and returns its text.
type DocumentExtractor interface {
	Extract(ctx context.Context, c Candidate, siteURL string) (*ExtractedDocument, error)
}

// Renderer converts a site report into a final output format.
type Renderer interface {
	Render(report SiteReport) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}

// Analyzer gives a second opinion on a document's text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Opinion, error)
	Name() string
}
