package score

// Deduper remembers content fingerprints seen during one crawl. Candidates
// are admitted in discovery order, so the earliest copy of a document wins.
type Deduper struct {
	seen map[string]struct{}
}

// NewDeduper creates an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Admit records fp and reports whether it is new.
func (d *Deduper) Admit(fp string) bool {
	if _, ok := d.seen[fp]; ok {
		return false
	}
	d.seen[fp] = struct{}{}
	return true
}
