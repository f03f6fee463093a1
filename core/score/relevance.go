// Package score implements keyword relevance, weak-signal classification
// and the composite ranking of documents.
package score

import (
	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/campaign"
	"github.com/gaurav-prasanna/muniwatch/core/phrase"
)

// Keyword weights for the relevance score.
const (
	PriorityWeight  = 2
	SecondaryWeight = 1
	BudgetWeight    = 1
)

// RelevanceScorer scores text against a campaign's keyword sets.
// Score is a pure function of text and configuration.
type RelevanceScorer struct {
	matcher   *phrase.Matcher
	threshold int
}

// NewRelevanceScorer builds a scorer for the campaign.
func NewRelevanceScorer(c campaign.Campaign) *RelevanceScorer {
	return &RelevanceScorer{
		matcher:   phrase.New(c.Keywords.Priority, c.Keywords.Secondary, c.Keywords.Budget),
		threshold: c.Threshold(),
	}
}

// Score counts each distinct matched phrase once per category.
func (s *RelevanceScorer) Score(text string) core.RelevanceResult {
	found := s.matcher.Match(text)
	m := core.Matches{Priority: found[0], Secondary: found[1], Budget: found[2]}

	score := PriorityWeight*len(m.Priority) +
		SecondaryWeight*len(m.Secondary) +
		BudgetWeight*len(m.Budget)

	return core.RelevanceResult{
		Score:     score,
		Threshold: s.threshold,
		Pertinent: score >= s.threshold,
		Matches:   m,
	}
}
