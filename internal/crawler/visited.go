package crawler

import "sync"

// Visited is the crawl-wide deduplication ledger. It is the sole authority
// on whether a URL is new: no other component may independently decide
// that.
//
// Design decision: We use an exact map rather than a probabilistic filter
// because a false positive would silently drop a never-visited URL, which
// breaks the dedup guarantee (every distinct admitted URL is fetched
// exactly once, and every novel URL is admitted).
type Visited struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewVisited creates an empty visited set.
func NewVisited() *Visited {
	return &Visited{seen: make(map[string]struct{})}
}

// TryClaim atomically checks and inserts a key. It returns true only the
// first time a key is presented across the whole crawl; every later
// presentation returns false. Claims are linearizable: under concurrent
// callers exactly one TryClaim per key observes success.
func (v *Visited) TryClaim(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Len returns the number of claimed keys.
func (v *Visited) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
