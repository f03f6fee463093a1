package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/muniwatch/core"
)

// stubCrawler returns one pertinent document per site, fails for sites
// listed in down and blocks on sites listed in slow until ctx is done.
type stubCrawler struct {
	down    map[string]bool
	slow    map[string]bool
	running atomic.Int32
	peak    atomic.Int32
}

func (s *stubCrawler) Crawl(ctx context.Context, site core.Site) (*core.SiteReport, error) {
	n := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	report := &core.SiteReport{Site: site}
	if s.down[site.URL] {
		return report, eris.Wrap(ErrConnection, "stub")
	}
	if s.slow[site.URL] {
		<-ctx.Done()
		report.Diagnostics.Cancelled = true
		return report, nil
	}
	time.Sleep(10 * time.Millisecond)
	report.Documents = []core.RankedDocument{{Relevance: core.RelevanceResult{Pertinent: true}}}
	return report, nil
}

type countingReviewer struct {
	mu    sync.Mutex
	sites []string
}

func (r *countingReviewer) Review(_ context.Context, report *core.SiteReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites = append(r.sites, report.Site.URL)
}

func TestRunner_RunsSitesIndependently(t *testing.T) {
	sites := []core.Site{
		{URL: "https://a.fr"}, {URL: "https://b.fr"}, {URL: "https://c.fr"},
		{URL: "https://d.fr"}, {URL: "https://e.fr"},
	}
	crawler := &stubCrawler{down: map[string]bool{"https://c.fr": true}}
	reviewer := &countingReviewer{}
	var finished atomic.Int32

	run := NewRunner(crawler, RunnerOptions{
		Concurrency: 2,
		Reviewer:    reviewer,
		OnSite:      func(*core.SiteReport, error) { finished.Add(1) },
	}).Run(context.Background(), "biomasse", sites)

	_, err := uuid.Parse(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "biomasse", run.Campaign)
	require.Len(t, run.Sites, 5)
	for i, s := range run.Sites {
		assert.Equal(t, sites[i].URL, s.Report.Site.URL, "outcomes keep input order")
	}
	assert.Contains(t, run.Sites[2].Error, "connection failure")
	assert.Equal(t, 1, run.Failed())
	assert.Equal(t, 4, run.Pertinent())
	assert.LessOrEqual(t, crawler.peak.Load(), int32(2))
	assert.Len(t, reviewer.sites, 4)
	assert.NotContains(t, reviewer.sites, "https://c.fr")
	assert.Equal(t, int32(5), finished.Load())
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestRunner_DeadlineReturnsPartialReports(t *testing.T) {
	crawler := &stubCrawler{slow: map[string]bool{"https://lent.fr": true}}

	start := time.Now()
	run := NewRunner(crawler, RunnerOptions{Deadline: 100 * time.Millisecond}).
		Run(context.Background(), "c", []core.Site{{URL: "https://lent.fr"}, {URL: "https://vite.fr"}})

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, run.Sites, 2)
	assert.True(t, run.Sites[0].Report.Diagnostics.Cancelled)
	assert.Empty(t, run.Sites[0].Error)
	assert.Len(t, run.Sites[1].Report.Documents, 1)
}
