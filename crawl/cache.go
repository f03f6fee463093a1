package crawl

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// MaxCachedSections bounds the sections remembered per domain.
const MaxCachedSections = 10

// SectionEntry is one section page that yielded pertinent documents.
type SectionEntry struct {
	URL          string    `json:"url"`
	LastSuccess  time.Time `json:"lastSuccess"`
	SuccessCount int       `json:"successCount"`
}

// SectionCache remembers, per domain, the section pages that produced
// pertinent documents so later crawls visit them first. It is safe for
// concurrent use. Stale entries are harmless: a dead section simply fails
// to fetch.
type SectionCache struct {
	mu      sync.Mutex
	domains map[string][]SectionEntry
}

// NewSectionCache creates an empty cache.
func NewSectionCache() *SectionCache {
	return &SectionCache{domains: make(map[string][]SectionEntry)}
}

// LoadSectionCache reads a cache saved by Save. A missing file yields an
// empty cache.
func LoadSectionCache(path string) (*SectionCache, error) {
	c := NewSectionCache()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: read section cache %s", path)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.domains); err != nil {
		return nil, eris.Wrapf(err, "crawl: decode section cache %s", path)
	}
	if c.domains == nil {
		c.domains = make(map[string][]SectionEntry)
	}
	return c, nil
}

// Save writes the cache as indented JSON, creating parent directories.
func (c *SectionCache) Save(path string) error {
	c.mu.Lock()
	data, err := json.MarshalIndent(c.domains, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return eris.Wrap(err, "crawl: encode section cache")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "crawl: create cache dir %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "crawl: write section cache %s", path)
	}
	return nil
}

// Sections returns the known section URLs for domain, best first.
func (c *SectionCache) Sections(domain string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.domains[cacheKey(domain)]
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.URL
	}
	return out
}

// Record notes that sections yielded pertinent documents at time at.
func (c *SectionCache) Record(domain string, sections []string, at time.Time) {
	if len(sections) == 0 {
		return
	}
	key := cacheKey(domain)

	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.domains[key]
	for _, s := range sections {
		found := false
		for i := range entries {
			if entries[i].URL == s {
				entries[i].SuccessCount++
				entries[i].LastSuccess = at
				found = true
				break
			}
		}
		if !found {
			entries = append(entries, SectionEntry{URL: s, LastSuccess: at, SuccessCount: 1})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SuccessCount != entries[j].SuccessCount {
			return entries[i].SuccessCount > entries[j].SuccessCount
		}
		return entries[i].LastSuccess.After(entries[j].LastSuccess)
	})
	if len(entries) > MaxCachedSections {
		entries = entries[:MaxCachedSections]
	}
	c.domains[key] = entries
}

// Flush forgets domain, or every domain when domain is empty.
func (c *SectionCache) Flush(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if domain == "" {
		c.domains = make(map[string][]SectionEntry)
		return
	}
	delete(c.domains, cacheKey(domain))
}

// Snapshot returns a copy of the cache contents.
func (c *SectionCache) Snapshot() map[string][]SectionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string][]SectionEntry, len(c.domains))
	for k, v := range c.domains {
		out[k] = append([]SectionEntry(nil), v...)
	}
	return out
}

func cacheKey(domain string) string {
	return stripWWW(domain)
}
