package crawler

// VisitedSet records the canonical URLs already dispatched to the fetcher
// during one crawl. It is owned by a single Crawl call and is not safe for
// concurrent use.
type VisitedSet struct {
	urls map[string]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]struct{})}
}

// Has reports whether url was already visited.
func (v *VisitedSet) Has(url string) bool {
	_, ok := v.urls[url]
	return ok
}

// Add marks url as visited. It returns false if url was already present.
func (v *VisitedSet) Add(url string) bool {
	if v.Has(url) {
		return false
	}
	v.urls[url] = struct{}{}
	return true
}

// Len returns the number of visited URLs.
func (v *VisitedSet) Len() int {
	return len(v.urls)
}
