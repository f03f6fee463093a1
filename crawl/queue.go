// Tiered candidate queue. A visited set yields each URL at most once per
// crawl.

package crawl

import "github.com/gaurav-prasanna/muniwatch/core"

const tierCount = 3

// Queue orders candidates by tier, then by discovery order.
type Queue struct {
	tiers   [tierCount][]core.Candidate
	visited map[string]bool
	size    int
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		visited: make(map[string]bool),
	}
}

// Add enqueues a candidate if its URL hasn't been seen before. It reports
// whether the candidate was added.
func (q *Queue) Add(c core.Candidate) bool {
	if q.visited[c.URL] {
		return false
	}
	q.visited[c.URL] = true

	tier := c.Tier
	if tier < 0 {
		tier = 0
	}
	if tier >= tierCount {
		tier = tierCount - 1
	}
	c.Tier = tier
	q.tiers[tier] = append(q.tiers[tier], c)
	q.size++
	return true
}

// MarkVisited records a URL without enqueuing it.
func (q *Queue) MarkVisited(url string) {
	q.visited[url] = true
}

// Seen reports whether url was added or marked.
func (q *Queue) Seen(url string) bool {
	return q.visited[url]
}

// Len returns the number of queued candidates.
func (q *Queue) Len() int {
	return q.size
}

// All returns the candidates tier-ascending, in discovery order within a
// tier, capped at limit (limit <= 0 means no cap).
func (q *Queue) All(limit int) []core.Candidate {
	out := make([]core.Candidate, 0, q.size)
	for _, tier := range q.tiers {
		out = append(out, tier...)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
