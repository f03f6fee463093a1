// Package crawl discovers the candidate documents of one municipal site:
// RSS/Atom feed entries, home-page links, links on a bounded set of
// section pages and sitemap.xml entries, ordered by estimated yield.
package crawl

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/dates"
	"github.com/gaurav-prasanna/muniwatch/core/fetch"
)

// ErrUnreachable is returned when the home page cannot be fetched over
// HTTPS or plain HTTP.
var ErrUnreachable = errors.New("crawl: site unreachable")

// defaultSectionPaths are probed when the home page exposes no tier-0
// section and probing is enabled.
var defaultSectionPaths = []string{
	"/deliberations",
	"/deliberation",
	"/conseil-municipal",
	"/publications",
	"/documents",
	"/vie-municipale",
	"/bulletin-municipal",
	"/bulletins-municipaux",
	"/magazine-municipal",
}

// Options bounds navigation.
type Options struct {
	MaxSections    int
	MaxSubsections int
	MaxCandidates  int
	ProbeDefaults  bool
	// SkipSitemap disables the sitemap.xml pass.
	SkipSitemap bool
}

// DefaultOptions returns the standard bounds.
func DefaultOptions() Options {
	return Options{MaxSections: 15, MaxSubsections: 20, MaxCandidates: 300}
}

// Discovery is the outcome of navigating one site.
type Discovery struct {
	// HomeURL is the home page actually served, after any HTTP fallback
	// and redirects.
	HomeURL      string
	Candidates   []core.Candidate
	Feeds        []string
	Sections     []string
	PagesVisited int
}

// Navigator implements site discovery.
type Navigator struct {
	fetcher core.Fetcher
	cache   *SectionCache
	opts    Options
}

// NewNavigator creates a Navigator. cache may be nil.
func NewNavigator(f core.Fetcher, cache *SectionCache, opts Options) *Navigator {
	def := DefaultOptions()
	if opts.MaxSections <= 0 {
		opts.MaxSections = def.MaxSections
	}
	if opts.MaxSubsections < 0 {
		opts.MaxSubsections = 0
	} else if opts.MaxSubsections == 0 {
		opts.MaxSubsections = def.MaxSubsections
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = def.MaxCandidates
	}
	return &Navigator{fetcher: f, cache: cache, opts: opts}
}

// link is an anchor found on a page.
type link struct {
	href string
	text string
}

// walk holds the state of one Discover call.
type walk struct {
	n        *Navigator
	host     string
	base     *url.URL
	queue    *Queue
	fetched  map[string]bool
	result   *Discovery
	sections []sectionRef
}

type sectionRef struct {
	url    string
	source core.SourceType
	tier   int
}

// Discover fetches the home page and returns candidates ordered
// tier-ascending, then by discovery order. An unreachable home page yields
// an empty Discovery and ErrUnreachable.
func (n *Navigator) Discover(ctx context.Context, siteURL string) (*Discovery, error) {
	home, err := n.fetchHome(ctx, siteURL)
	if err != nil {
		return &Discovery{}, err
	}

	base, err := url.Parse(home.URL)
	if err != nil {
		return &Discovery{}, eris.Wrap(err, "crawl: parse home url")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(home.Body))
	if err != nil {
		return &Discovery{}, eris.Wrap(err, "crawl: parse home page")
	}

	w := &walk{
		n:       n,
		host:    base.Host,
		base:    base,
		queue:   NewQueue(),
		fetched: map[string]bool{NormalizeURL(home.URL): true},
		result:  &Discovery{HomeURL: home.URL, PagesVisited: 1},
	}
	w.queue.MarkVisited(NormalizeURL(home.URL))

	w.feeds(ctx, doc)

	for _, l := range anchors(doc, base) {
		w.add(l, home.URL, 1, core.SourceGenerique, 2)
	}

	w.exploreSections(ctx)

	if !n.opts.SkipSitemap && w.queue.Len() < n.opts.MaxCandidates {
		w.sitemap(ctx)
	}

	w.result.Candidates = w.queue.All(n.opts.MaxCandidates)
	zap.L().Debug("crawl: discovery complete",
		zap.String("site", home.URL),
		zap.Int("candidates", len(w.result.Candidates)),
		zap.Int("pages", w.result.PagesVisited),
		zap.Int("feeds", len(w.result.Feeds)))
	return w.result, nil
}

// fetchHome fetches the home page, retrying once over plain HTTP when
// HTTPS fails at the transport level.
func (n *Navigator) fetchHome(ctx context.Context, siteURL string) (*core.FetchResult, error) {
	res, err := n.fetcher.Fetch(ctx, siteURL)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if strings.HasPrefix(siteURL, "https://") && !fetch.IsStatusError(err) {
		plain := "http://" + strings.TrimPrefix(siteURL, "https://")
		zap.L().Info("crawl: https failed, retrying over http", zap.String("site", siteURL), zap.Error(err))
		res, plainErr := n.fetcher.Fetch(ctx, plain)
		if plainErr == nil {
			return res, nil
		}
		err = plainErr
	}
	return nil, eris.Wrapf(ErrUnreachable, "crawl: %s: %v", siteURL, err)
}

// feeds collects entries from declared feeds, or from the first common
// feed path that parses when none is declared.
func (w *walk) feeds(ctx context.Context, doc *goquery.Document) {
	declared := FeedLinks(doc, w.base)
	probe := len(declared) == 0
	urls := declared
	if probe {
		for _, p := range commonFeedPaths {
			urls = append(urls, w.base.Scheme+"://"+w.base.Host+p)
		}
	}

	for _, feedURL := range urls {
		if ctx.Err() != nil {
			return
		}
		if !IsSameDomain(feedURL, w.host) || w.fetched[feedURL] {
			continue
		}
		w.fetched[feedURL] = true

		res, err := w.n.fetcher.Fetch(ctx, feedURL)
		if err != nil {
			continue
		}
		w.result.PagesVisited++
		items, err := FeedCandidates(string(res.Body), feedURL)
		if err != nil {
			zap.L().Debug("crawl: not a feed", zap.String("url", feedURL), zap.Error(err))
			continue
		}
		w.result.Feeds = append(w.result.Feeds, feedURL)
		for _, c := range items {
			if IsSameDomain(c.URL, w.host) && !IsExcluded(c.URL) {
				w.queue.Add(c)
			}
		}
		if probe {
			return
		}
	}
}

// add classifies a link found on page and enqueues it. Documents take the
// page's tier when it is better. Pages below tier 2 are also remembered as
// sections to explore; tier-2 pages are only yielded last. Links that
// classify as generique inherit the category of the page they sit on.
func (w *walk) add(l link, page string, depth int, pageSource core.SourceType, pageTier int) {
	if w.queue.Len() >= w.n.opts.MaxCandidates {
		return
	}
	if !IsSameDomain(l.href, w.host) || IsExcluded(l.href) || IsStaticAsset(l.href) {
		return
	}
	u := NormalizeURL(l.href)
	if w.queue.Seen(u) {
		return
	}

	source, tier := Classify(u, l.text)
	if source == core.SourceGenerique && pageSource != core.SourceGenerique {
		source = pageSource
		if pageTier < tier {
			tier = pageTier
		}
	}
	if IsDocument(u) && pageTier < tier {
		tier = pageTier
	}

	c := core.Candidate{
		URL:        u,
		Source:     source,
		Depth:      depth,
		Tier:       tier,
		Section:    page,
		Title:      l.text,
		IsDocument: IsDocument(u),
	}
	if c.IsDocument {
		c.FileName = dates.FileName(u)
	}
	w.queue.Add(c)
	if !c.IsDocument && tier < 2 {
		w.sections = append(w.sections, sectionRef{url: u, source: source, tier: tier})
	}
}

// exploreSections visits cached sections, then home-page sections tier by
// tier, then (optionally) default paths. Deliberation and bulletin
// sections get one more level of exploration.
func (w *walk) exploreSections(ctx context.Context) {
	var plan []sectionRef
	seen := make(map[string]bool)
	push := func(s sectionRef) {
		if !seen[s.url] && !w.fetched[s.url] {
			seen[s.url] = true
			plan = append(plan, s)
		}
	}

	if w.n.cache != nil {
		for _, s := range w.n.cache.Sections(w.host) {
			resolved := resolveURL(s, w.base)
			if resolved == "" || !IsSameDomain(resolved, w.host) {
				continue
			}
			src, tier := Classify(resolved, "")
			push(sectionRef{url: NormalizeURL(resolved), source: src, tier: tier})
		}
	}

	hasTier0 := false
	for _, tier := range []int{0, 1} {
		for _, s := range w.sections {
			if s.tier == tier {
				push(s)
				hasTier0 = hasTier0 || tier == 0
			}
		}
	}
	if !hasTier0 && w.n.opts.ProbeDefaults {
		for _, p := range defaultSectionPaths {
			resolved := NormalizeURL(w.base.Scheme + "://" + w.base.Host + p)
			src, tier := Classify(resolved, "")
			push(sectionRef{url: resolved, source: src, tier: tier})
		}
	}
	w.sections = nil

	visited := 0
	subsections := 0
	for _, s := range plan {
		if visited >= w.n.opts.MaxSections || w.queue.Len() >= w.n.opts.MaxCandidates || ctx.Err() != nil {
			break
		}
		links, ok := w.visit(ctx, s.url)
		if !ok {
			continue
		}
		visited++
		w.result.Sections = append(w.result.Sections, s.url)
		for _, l := range links {
			w.add(l, s.url, 2, s.source, s.tier)
		}

		if s.source != core.SourceDeliberation && s.source != core.SourceBulletin {
			w.sections = nil
			continue
		}
		subs := w.sections
		w.sections = nil
		for _, sub := range subs {
			if subsections >= w.n.opts.MaxSubsections || w.queue.Len() >= w.n.opts.MaxCandidates || ctx.Err() != nil {
				break
			}
			subLinks, ok := w.visit(ctx, sub.url)
			if !ok {
				continue
			}
			subsections++
			for _, l := range subLinks {
				w.add(l, sub.url, 3, sub.source, sub.tier)
			}
			w.sections = nil
		}
	}
}

// visit fetches a page once and returns its anchors.
func (w *walk) visit(ctx context.Context, pageURL string) ([]link, bool) {
	if w.fetched[pageURL] {
		return nil, false
	}
	w.fetched[pageURL] = true

	res, err := w.n.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		zap.L().Debug("crawl: section fetch failed", zap.String("url", pageURL), zap.Error(err))
		return nil, false
	}
	w.result.PagesVisited++

	base, err := url.Parse(res.URL)
	if err != nil {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, false
	}
	return anchors(doc, base), true
}

// sitemapURLSet is the root element of a sitemap.xml.
type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// sitemap adds same-origin sitemap.xml entries, classified like links.
func (w *walk) sitemap(ctx context.Context) {
	sitemapURL := w.base.Scheme + "://" + w.base.Host + "/sitemap.xml"
	res, err := w.n.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return
	}
	var set sitemapURLSet
	if err := xml.Unmarshal(res.Body, &set); err != nil {
		return
	}
	w.result.PagesVisited++
	for _, u := range set.URLs {
		w.add(link{href: strings.TrimSpace(u.Loc)}, sitemapURL, 1, core.SourceGenerique, 2)
	}
	w.sections = nil
}

// anchors extracts all <a href> targets, resolved, with their text.
func anchors(doc *goquery.Document, base *url.URL) []link {
	var links []link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		resolved := resolveURL(s.AttrOr("href", ""), base)
		if resolved == "" {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			text = strings.TrimSpace(s.AttrOr("title", ""))
		}
		links = append(links, link{href: resolved, text: text})
	})
	return links
}
