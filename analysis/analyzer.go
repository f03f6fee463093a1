// Package analysis asks a language model for a second opinion on the
// documents the keyword scorer found pertinent. One Analyzer exists per
// provider and is chosen once from configuration.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/chunk"
	"github.com/gaurav-prasanna/muniwatch/internal/resilience"
)

// Provider names.
const (
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
	ProviderTogether   = "together"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOllama     = "ollama"
)

// DefaultMaxChars bounds the text sent for review.
const DefaultMaxChars = 8000

var (
	ErrUnknownProvider = errors.New("analysis: unknown provider")
	ErrMissingAPIKey   = errors.New("analysis: missing api key")
	ErrBadReply        = errors.New("analysis: unparseable reply")
)

// Config selects and tunes a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	Timeout time.Duration
	Retry   resilience.RetryConfig
}

// New returns the Analyzer for cfg.Provider.
func New(cfg Config) (core.Analyzer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	switch p := strings.ToLower(strings.TrimSpace(cfg.Provider)); p {
	case ProviderGroq, ProviderOpenRouter, ProviderTogether, ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, eris.Wrapf(ErrMissingAPIKey, "analysis: provider %s", p)
		}
		return NewChatCompletions(p, cfg), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, eris.Wrapf(ErrMissingAPIKey, "analysis: provider %s", p)
		}
		return NewAnthropic(cfg), nil
	case ProviderOllama:
		return NewOllama(cfg), nil
	default:
		return nil, eris.Wrapf(ErrUnknownProvider, "analysis: %q", cfg.Provider)
	}
}

const systemInstruction = "Tu es un expert en analyse de documents municipaux. Réponds UNIQUEMENT en JSON valide."

const reviewInstruction = `Analyse ce document municipal et indique s'il décrit un projet concret correspondant à la campagne de veille (étude, délibération, marché, convention, installation).

Un simple accusé de réception, un budget annuel sans projet identifié ou une mention isolée d'un mot-clé ne sont pas pertinents.

# Document à analyser

%s

# Réponds UNIQUEMENT avec un objet JSON valide, sans markdown :
{"pertinent": true, "score": 8, "resume": "résumé court", "justification": "explication"}`

func userPrompt(text string) string {
	return fmt.Sprintf(reviewInstruction, text)
}

// parseReply reads the first JSON object in a model reply. It accepts the
// plain keys and their ia_ prefixed variants, "summary" for "resume", and
// scores given as numbers or strings.
func parseReply(reply string) (*core.Opinion, error) {
	start := strings.IndexByte(reply, '{')
	if start < 0 {
		return nil, eris.Wrapf(ErrBadReply, "analysis: no json object in %q", excerpt(reply))
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(reply[start:])))
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, eris.Wrapf(ErrBadReply, "analysis: %v in %q", err, excerpt(reply))
	}

	op := &core.Opinion{
		Pertinent:     asBool(pick(raw, "pertinent", "ia_pertinent")),
		Score:         asInt(pick(raw, "score", "ia_score")),
		Summary:       asString(pick(raw, "resume", "ia_resume", "summary", "résumé")),
		Justification: asString(pick(raw, "justification", "ia_justification")),
	}
	op.Score = min(max(op.Score, 0), 10)
	return op, nil
}

func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(strings.ToLower(x)))
		return b || strings.EqualFold(x, "oui")
	case float64:
		return x != 0
	}
	return false
}

func asInt(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil {
			return int(f)
		}
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func excerpt(s string) string {
	return chunk.Excerpt(s, 30)
}

// Reviewer attaches AI opinions to the pertinent documents of a report.
type Reviewer struct {
	analyzer  core.Analyzer
	threshold int
	maxChars  int
}

// NewReviewer creates a Reviewer. An opinion is confirmed when its score
// reaches threshold.
func NewReviewer(a core.Analyzer, threshold, maxChars int) *Reviewer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Reviewer{analyzer: a, threshold: threshold, maxChars: maxChars}
}

// Review asks for an opinion on every pertinent document in report. A
// failed call leaves the document without an opinion.
func (r *Reviewer) Review(ctx context.Context, report *core.SiteReport) {
	for i := range report.Documents {
		doc := &report.Documents[i]
		if !doc.Relevance.Pertinent {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		op, err := r.analyzer.Analyze(ctx, chunk.Truncate(doc.Text, r.maxChars))
		if err != nil {
			zap.L().Warn("analysis: review failed",
				zap.String("provider", r.analyzer.Name()),
				zap.String("url", doc.SourceURL),
				zap.Error(err))
			continue
		}
		op.Confirmed = op.Score >= r.threshold
		doc.Analysis = op
	}
}
