package score

import (
	"cmp"
	"slices"
	"time"

	"github.com/gaurav-prasanna/muniwatch/core"
)

// Composite score weights.
const (
	RankPriorityWeight  = 3
	RankSecondaryWeight = 1
	RankBudgetWeight    = 1
	MaxFreshnessPenalty = 12
)

// CompositeRanker combines freshness, relevance, signals, source and
// maturity into one integer score.
type CompositeRanker struct {
	now func() time.Time
}

// NewCompositeRanker uses now as the reference clock; nil means time.Now.
func NewCompositeRanker(now func() time.Time) *CompositeRanker {
	if now == nil {
		now = time.Now
	}
	return &CompositeRanker{now: now}
}

// Freshness is minus the document age in whole weeks, capped at twelve.
// An unknown date, or one in the future, scores zero.
func (r *CompositeRanker) Freshness(date *time.Time) int {
	if date == nil {
		return 0
	}
	days := int(dayOf(r.now()).Sub(dayOf(*date)).Hours() / 24)
	if days <= 0 {
		return 0
	}
	return -min(days/7, MaxFreshnessPenalty)
}

// Breakdown computes each term of the composite score.
func (r *CompositeRanker) Breakdown(rel core.RelevanceResult, sig core.SignalResult, date *time.Time, source core.SourceType) core.ScoreBreakdown {
	return core.ScoreBreakdown{
		Freshness: r.Freshness(date),
		Relevance: RankPriorityWeight*len(rel.Matches.Priority) +
			RankSecondaryWeight*len(rel.Matches.Secondary) +
			RankBudgetWeight*len(rel.Matches.Budget),
		Signals:  sig.Count(),
		Source:   source.Weight(),
		Maturity: sig.Maturity.Bonus(),
	}
}

// Rank returns the composite score of a document.
func (r *CompositeRanker) Rank(_ core.ExtractedDocument, rel core.RelevanceResult, sig core.SignalResult, date *time.Time, source core.SourceType) int {
	return r.Breakdown(rel, sig, date, source).Total()
}

// Build assembles the RankedDocument for one scored candidate.
func (r *CompositeRanker) Build(doc core.ExtractedDocument, rel core.RelevanceResult, sig core.SignalResult, date *time.Time, source core.SourceType, order int) core.RankedDocument {
	b := r.Breakdown(rel, sig, date, source)
	doc.HTML = ""
	return core.RankedDocument{
		ExtractedDocument: doc,
		Relevance:         rel,
		Signals:           sig,
		PublishedAt:       date,
		Score:             b.Total(),
		Breakdown:         b,
		Source:            source,
		Order:             order,
	}
}

// Sort orders documents by descending score, ties by discovery order.
func Sort(docs []core.RankedDocument) {
	slices.SortStableFunc(docs, func(a, b core.RankedDocument) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Order, b.Order)
	})
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
