package fetch

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/muniwatch/core"
)

// ErrDisallowed is returned for URLs blocked by robots.txt.
var ErrDisallowed = errors.New("fetch: disallowed by robots.txt")

// PoliteFetcher spaces requests to the same origin by at least a minimum
// delay and, when a RobotsChecker is set, refuses disallowed URLs.
// A robots.txt Crawl-delay longer than the configured delay wins.
type PoliteFetcher struct {
	next   core.Fetcher
	delay  time.Duration
	robots *RobotsChecker

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPolite wraps next. robots may be nil to skip robots.txt checks.
func NewPolite(next core.Fetcher, delay time.Duration, robots *RobotsChecker) *PoliteFetcher {
	return &PoliteFetcher{
		next:     next,
		delay:    delay,
		robots:   robots,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch waits for the origin's turn, then delegates.
func (p *PoliteFetcher) Fetch(ctx context.Context, rawURL string) (*core.FetchResult, error) {
	if err := p.admit(ctx, rawURL); err != nil {
		return nil, err
	}
	return p.next.Fetch(ctx, rawURL)
}

// Head waits for the origin's turn, then delegates.
func (p *PoliteFetcher) Head(ctx context.Context, rawURL string) (*core.FetchResult, error) {
	if err := p.admit(ctx, rawURL); err != nil {
		return nil, err
	}
	return p.next.Head(ctx, rawURL)
}

// Allowed reports whether robots.txt permits rawURL. Without a checker
// everything is allowed.
func (p *PoliteFetcher) Allowed(ctx context.Context, rawURL string) bool {
	if p.robots == nil {
		return true
	}
	ok, err := p.robots.Allowed(ctx, rawURL)
	return err != nil || ok
}

func (p *PoliteFetcher) admit(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return eris.Wrap(err, "fetch: parse url")
	}
	if !p.Allowed(ctx, rawURL) {
		return eris.Wrapf(ErrDisallowed, "fetch: %s", rawURL)
	}
	if err := p.limiter(u).Wait(ctx); err != nil {
		return eris.Wrap(err, "fetch: wait for origin")
	}
	return nil
}

func (p *PoliteFetcher) limiter(u *url.URL) *rate.Limiter {
	origin := strings.ToLower(u.Scheme + "://" + u.Host)

	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.limiters[origin]; ok {
		return l
	}
	delay := p.delay
	if p.robots != nil {
		if cd := p.robots.CrawlDelay(u.Host); cd > delay {
			delay = cd
		}
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	l := rate.NewLimiter(limit, 1)
	p.limiters[origin] = l
	return l
}
