// Package pipeline drives the per-site crawl: navigation, extraction,
// date inference, scoring and ranking, then runs many sites through a
// bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/campaign"
	"github.com/gaurav-prasanna/muniwatch/core/dates"
	"github.com/gaurav-prasanna/muniwatch/core/score"
	"github.com/gaurav-prasanna/muniwatch/crawl"
)

// ErrConnection is returned when a site cannot be reached at all. The
// accompanying report is empty but valid.
var ErrConnection = errors.New("pipeline: connection failure")

// State is a step of the site crawl.
type State string

const (
	StateConnecting State = "connecting"
	StateNavigating State = "navigating"
	StateExtracting State = "extracting"
	StateScoring    State = "scoring"
	StateDone       State = "done"
)

// Navigator discovers the candidates of one site.
type Navigator interface {
	Discover(ctx context.Context, siteURL string) (*crawl.Discovery, error)
}

// Allower reports whether a URL may be fetched.
type Allower interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Deps are the collaborators of a SiteCrawler.
type Deps struct {
	Navigator Navigator
	Extractor core.DocumentExtractor
	// Fetcher issues HEAD requests for Last-Modified; nil disables them.
	Fetcher core.Fetcher
	// Robots filters candidates; nil allows everything.
	Robots Allower
	// Cache records the sections that yielded pertinent documents; may be nil.
	Cache *crawl.SectionCache
}

// Options tune a SiteCrawler.
type Options struct {
	// UseLastModified issues a HEAD request to date documents whose date
	// is unknown before download.
	UseLastModified bool
	// Now is the reference clock; nil means time.Now.
	Now func() time.Time
}

// SiteCrawler runs one campaign over one site at a time. It holds no
// per-crawl state and may be shared across goroutines.
type SiteCrawler struct {
	campaign  campaign.Campaign
	deps      Deps
	opts      Options
	dates     *dates.Inferencer
	relevance *score.RelevanceScorer
	signals   *score.SignalClassifier
	ranker    *score.CompositeRanker
}

// NewSiteCrawler compiles the campaign's scorers once. Later changes to
// the caller's campaign do not affect the crawler.
func NewSiteCrawler(c campaign.Campaign, deps Deps, opts Options) *SiteCrawler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SiteCrawler{
		campaign:  c,
		deps:      deps,
		opts:      opts,
		dates:     dates.New(),
		relevance: score.NewRelevanceScorer(c),
		signals:   score.NewSignalClassifier(c),
		ranker:    score.NewCompositeRanker(opts.Now),
	}
}

// Campaign returns the campaign the crawler was built with.
func (s *SiteCrawler) Campaign() campaign.Campaign { return s.campaign }

// siteCrawl is the state of one Crawl call.
type siteCrawl struct {
	s         *SiteCrawler
	site      core.Site
	now       time.Time
	state     State
	report    *core.SiteReport
	dedup     *score.Deduper
	pertinent map[string]bool
}

// Crawl runs the site through the pipeline and returns its ranked,
// deduplicated, window-filtered documents. An unreachable site yields an
// empty report and ErrConnection. Cancellation stops between or inside
// candidates and returns the partial report with Cancelled set.
func (s *SiteCrawler) Crawl(ctx context.Context, site core.Site) (*core.SiteReport, error) {
	now := s.opts.Now()
	sc := &siteCrawl{
		s:    s,
		site: site,
		now:  now,
		report: &core.SiteReport{
			Campaign:    s.campaign.Name,
			Site:        site,
			GeneratedAt: now,
			Documents:   []core.RankedDocument{},
		},
		dedup:     score.NewDeduper(),
		pertinent: make(map[string]bool),
	}
	sc.enter(StateConnecting)

	disc, err := s.deps.Navigator.Discover(ctx, site.URL)
	if err != nil {
		if ctx.Err() != nil {
			sc.report.Diagnostics.Cancelled = true
			return sc.finish(), nil
		}
		sc.report.Diagnostics.ConnectionLost = err.Error()
		zap.L().Warn("pipeline: site unreachable", zap.String("site", site.URL), zap.Error(err))
		sc.finish()
		return sc.report, eris.Wrapf(ErrConnection, "pipeline: %s: %v", site.URL, err)
	}
	sc.enter(StateNavigating)
	sc.report.Diagnostics.PagesVisited = disc.PagesVisited

	for order, c := range disc.Candidates {
		if ctx.Err() != nil {
			sc.report.Diagnostics.Cancelled = true
			break
		}
		if !sc.process(ctx, order, c) {
			sc.report.Diagnostics.Cancelled = true
			break
		}
	}

	sc.recordSections(disc)
	return sc.finish(), nil
}

// process runs one candidate. It returns false when ctx was cancelled
// mid-candidate.
func (sc *siteCrawl) process(ctx context.Context, order int, c core.Candidate) bool {
	d := &sc.report.Diagnostics
	log := zap.L().With(zap.String("site", sc.site.URL), zap.String("url", c.URL))

	if sc.s.deps.Robots != nil && !sc.s.deps.Robots.Allowed(ctx, c.URL) {
		d.Disallowed++
		log.Debug("pipeline: disallowed by robots.txt")
		return true
	}

	pre, preStrategy, lastModified := sc.dateBeforeDownload(ctx, c)
	if ctx.Err() != nil {
		return false
	}
	if pre != nil && !dates.InWindow(pre, sc.now, sc.s.campaign.WindowDays) {
		d.OutOfWindow++
		log.Debug("pipeline: out of window before download",
			zap.Time("date", *pre), zap.String("strategy", string(preStrategy)))
		return true
	}

	sc.enter(StateExtracting)
	d.Attempted++
	doc, err := sc.s.deps.Extractor.Extract(ctx, c, sc.site.URL)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		d.Failed++
		log.Debug("pipeline: candidate failed", zap.Error(err))
		return true
	}
	if doc.Method == core.MethodPDFOCR {
		d.OCRed++
	}
	if doc.LastModified == nil {
		doc.LastModified = lastModified
	}

	date, strategy := sc.resolveDate(c, doc)
	if !dates.InWindow(date, sc.now, sc.s.campaign.WindowDays) {
		d.OutOfWindow++
		log.Debug("pipeline: out of window", zap.Time("date", *date), zap.String("strategy", string(strategy)))
		return true
	}
	if !sc.dedup.Admit(doc.Fingerprint) {
		d.Duplicates++
		log.Debug("pipeline: duplicate content")
		return true
	}

	sc.enter(StateScoring)
	rel := sc.s.relevance.Score(doc.Text)
	sig := sc.s.signals.Classify(doc.Text)
	if sig.Maturity.Rank() < sc.s.campaign.MaturityFloor.Rank() {
		d.BelowMaturity++
		log.Debug("pipeline: below maturity floor", zap.String("maturity", string(sig.Maturity)))
		return true
	}

	ranked := sc.s.ranker.Build(*doc, rel, sig, date, c.Source, order)
	ranked.DateStrategy = string(strategy)
	ranked.Section = c.Section
	sc.report.Documents = append(sc.report.Documents, ranked)

	if rel.Pertinent {
		d.Retained++
		if c.Section != "" {
			sc.pertinent[c.Section] = true
		}
	} else {
		d.Discarded++
	}
	log.Debug("pipeline: scored",
		zap.String("method", string(doc.Method)),
		zap.Int("relevance", rel.Score),
		zap.Int("score", ranked.Score),
		zap.Bool("pertinent", rel.Pertinent))
	return true
}

// dateBeforeDownload returns the date known without downloading: the feed
// date, then the file name, then Last-Modified from a HEAD request when
// enabled. The header date is also returned so extraction can reuse it.
func (sc *siteCrawl) dateBeforeDownload(ctx context.Context, c core.Candidate) (*time.Time, dates.Strategy, *time.Time) {
	if c.KnownDate != nil {
		return c.KnownDate, dates.StrategyFeed, nil
	}
	if inf, ok := dates.FromURL(c.URL); ok {
		return &inf.Date, dates.StrategyFilename, nil
	}
	if !sc.s.opts.UseLastModified || sc.s.deps.Fetcher == nil || !c.IsDocument {
		return nil, "", nil
	}
	res, err := sc.s.deps.Fetcher.Head(ctx, c.URL)
	if err != nil {
		return nil, "", nil
	}
	t, ok := dates.FromHeader(res.Header)
	if !ok {
		return nil, "", nil
	}
	return &t, dates.StrategyHeader, &t
}

// Score rates one already extracted document the way Crawl would, without
// the window, dedup and maturity filters.
func (s *SiteCrawler) Score(c core.Candidate, doc *core.ExtractedDocument) core.RankedDocument {
	sc := &siteCrawl{s: s, now: s.opts.Now()}
	date, strategy := sc.resolveDate(c, doc)
	rel := s.relevance.Score(doc.Text)
	sig := s.signals.Classify(doc.Text)
	ranked := s.ranker.Build(*doc, rel, sig, date, c.Source, 0)
	ranked.DateStrategy = string(strategy)
	ranked.Section = c.Section
	return ranked
}

// resolveDate applies the final precedence: feed date, the inference
// chain over the document, then the server's Last-Modified.
func (sc *siteCrawl) resolveDate(c core.Candidate, doc *core.ExtractedDocument) (*time.Time, dates.Strategy) {
	if c.KnownDate != nil {
		return c.KnownDate, dates.StrategyFeed
	}
	if inf, ok := sc.s.dates.Infer(doc.HTML, doc.Text, c.URL); ok {
		return &inf.Date, inf.Strategy
	}
	if doc.LastModified != nil {
		t := dates.Naive(*doc.LastModified)
		return &t, dates.StrategyHeader
	}
	return nil, ""
}

// recordSections remembers the navigated sections that yielded pertinent
// documents.
func (sc *siteCrawl) recordSections(disc *crawl.Discovery) {
	if sc.s.deps.Cache == nil || len(sc.pertinent) == 0 {
		return
	}
	var good []string
	for _, section := range disc.Sections {
		if sc.pertinent[section] {
			good = append(good, section)
		}
	}
	if len(good) == 0 {
		return
	}
	host := disc.HomeURL
	if h := hostOf(host); h != "" {
		host = h
	}
	sc.s.deps.Cache.Record(host, good, sc.now)
}

func (sc *siteCrawl) enter(s State) {
	sc.state = s
	zap.L().Debug("pipeline: state", zap.String("site", sc.site.URL), zap.String("state", string(s)))
}

// finish sorts the documents and fills the summary fields.
func (sc *siteCrawl) finish() *core.SiteReport {
	sc.enter(StateDone)
	score.Sort(sc.report.Documents)

	d := &sc.report.Diagnostics
	for i, doc := range sc.report.Documents {
		if i == 0 || doc.Score > d.MaxScore {
			d.MaxScore = doc.Score
		}
	}
	d.FinalState = string(sc.state)

	zap.L().Info("pipeline: site complete",
		zap.String("site", sc.site.URL),
		zap.Int("pages_visited", d.PagesVisited),
		zap.Int("attempted", d.Attempted),
		zap.Int("ocred", d.OCRed),
		zap.Int("retained", d.Retained),
		zap.Int("discarded", d.Discarded),
		zap.Int("failed", d.Failed),
		zap.Int("out_of_window", d.OutOfWindow),
		zap.Int("duplicates", d.Duplicates),
		zap.Int("max_score", d.MaxScore),
		zap.Bool("cancelled", d.Cancelled))
	return sc.report
}
