package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/muniwatch/core"
)

// Crawler crawls one site.
type Crawler interface {
	Crawl(ctx context.Context, site core.Site) (*core.SiteReport, error)
}

// Reviewer enriches a finished site report, e.g. with AI opinions.
type Reviewer interface {
	Review(ctx context.Context, report *core.SiteReport)
}

// RunnerOptions bound a multi-site run.
type RunnerOptions struct {
	// Concurrency is the number of sites crawled at once. Default: 4.
	Concurrency int
	// Deadline aborts every crawl still running after this long; zero
	// means no deadline.
	Deadline time.Duration
	// Reviewer runs on each report once its crawl ends; may be nil.
	Reviewer Reviewer
	// OnSite is called as each site finishes, from the worker goroutine.
	OnSite func(report *core.SiteReport, err error)
}

// Runner crawls many independent sites through a bounded worker pool.
type Runner struct {
	crawler Crawler
	opts    RunnerOptions
}

// NewRunner creates a Runner.
func NewRunner(c Crawler, opts RunnerOptions) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Runner{crawler: c, opts: opts}
}

// SiteOutcome is the result of one site within a run.
type SiteOutcome struct {
	Report *core.SiteReport `json:"report"`
	Error  string           `json:"error,omitempty"`
}

// Run is the result of crawling a list of sites.
type Run struct {
	ID         string        `json:"id"`
	Campaign   string        `json:"campaign"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Sites      []SiteOutcome `json:"sites"`
}

// Run crawls sites and returns their outcomes in input order. A site that
// fails never aborts the others; only ctx cancellation stops the run early,
// in which case the partial reports are still returned.
func (r *Runner) Run(ctx context.Context, campaignName string, sites []core.Site) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		Campaign:  campaignName,
		StartedAt: time.Now(),
		Sites:     make([]SiteOutcome, len(sites)),
	}

	if r.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Deadline)
		defer cancel()
	}

	zap.L().Info("pipeline: run started",
		zap.String("run_id", run.ID),
		zap.String("campaign", campaignName),
		zap.Int("sites", len(sites)),
		zap.Int("concurrency", r.opts.Concurrency))

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, site := range sites {
		g.Go(func() error {
			run.Sites[i] = r.crawlSite(ctx, site)
			return nil
		})
	}
	_ = g.Wait()

	run.FinishedAt = time.Now()
	zap.L().Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("sites", len(sites)),
		zap.Int("pertinent", run.Pertinent()),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	return run
}

func (r *Runner) crawlSite(ctx context.Context, site core.Site) SiteOutcome {
	report, err := r.crawler.Crawl(ctx, site)
	if report == nil {
		report = &core.SiteReport{Site: site, GeneratedAt: time.Now(), Documents: []core.RankedDocument{}}
	}
	if err == nil && r.opts.Reviewer != nil && ctx.Err() == nil {
		r.opts.Reviewer.Review(ctx, report)
	}
	if r.opts.OnSite != nil {
		r.opts.OnSite(report, err)
	}

	out := SiteOutcome{Report: report}
	if err != nil {
		out.Error = err.Error()
		if !errors.Is(err, ErrConnection) {
			zap.L().Error("pipeline: site crawl failed", zap.String("site", site.URL), zap.Error(err))
		}
	}
	return out
}

// Pertinent counts the pertinent documents across every site.
func (r *Run) Pertinent() int {
	n := 0
	for _, s := range r.Sites {
		if s.Report == nil {
			continue
		}
		for _, d := range s.Report.Documents {
			if d.Relevance.Pertinent {
				n++
			}
		}
	}
	return n
}

// Failed counts the sites that returned an error.
func (r *Run) Failed() int {
	n := 0
	for _, s := range r.Sites {
		if s.Error != "" {
			n++
		}
	}
	return n
}

// hostOf returns the host of rawURL, lower-cased, or "".
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
