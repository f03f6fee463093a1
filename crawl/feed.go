package crawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/dates"
)

// commonFeedPaths are probed when the home page declares no feed.
var commonFeedPaths = []string{
	"/feed",
	"/feed/",
	"/rss",
	"/rss.xml",
	"/feed.xml",
	"/atom.xml",
	"/index.xml",
}

// FeedLinks returns the feeds a page declares with
// <link rel="alternate" type="application/rss+xml|atom+xml">.
func FeedLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(s.AttrOr("type", ""))
		if !strings.Contains(typ, "rss+xml") && !strings.Contains(typ, "atom+xml") {
			return
		}
		if resolved := resolveURL(s.AttrOr("href", ""), base); resolved != "" {
			links = append(links, resolved)
		}
	})
	return links
}

// FeedCandidates parses an RSS or Atom body into rss candidates. Entries
// without a usable link are skipped. Entries are tiered like links, by
// their URL and title. A feed-declared date is carried on the candidate.
func FeedCandidates(body, feedURL string) ([]core.Candidate, error) {
	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: parse feed %s", feedURL)
	}
	base, err := url.Parse(feedURL)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse feed url")
	}

	out := make([]core.Candidate, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := item.Link
		if link == "" && strings.HasPrefix(item.GUID, "http") {
			link = item.GUID
		}
		link = resolveURL(link, base)
		if link == "" {
			continue
		}

		title := strings.TrimSpace(item.Title)
		_, tier := Classify(link, title)
		c := core.Candidate{
			URL:        NormalizeURL(link),
			Source:     core.SourceRSS,
			Depth:      1,
			Tier:       tier,
			Section:    feedURL,
			Title:      title,
			IsDocument: IsDocument(link),
		}
		if c.IsDocument {
			c.FileName = dates.FileName(link)
		}
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published != nil {
			d := dates.Naive(*published)
			c.KnownDate = &d
		}
		out = append(out, c)
	}
	return out, nil
}
