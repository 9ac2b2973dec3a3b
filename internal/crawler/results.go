package crawler

import (
	"sync"
	"time"

	"github.com/PiCarODD/DeepCrawl/internal/model"
)

// ResultSet accumulates discovered pages, endpoints, and function names.
// It is mutated only by the engine's coordinator after successful
// fetch+extract cycles; every mutation is serialized, so Snapshot readers
// never observe a torn update.
type ResultSet struct {
	mu sync.Mutex

	target    string
	startedAt time.Time
	maxDepth  int

	pages     map[string]struct{}
	endpoints map[string]struct{}
	functions map[string]struct{}
	failures  []model.FetchFailure

	crawled      int
	failed       int
	depthLimited int
	interrupted  bool
}

// NewResultSet creates an empty result set for a crawl of target.
func NewResultSet(target string, maxDepth int) *ResultSet {
	return &ResultSet{
		target:    target,
		startedAt: time.Now(),
		maxDepth:  maxDepth,
		pages:     make(map[string]struct{}),
		endpoints: make(map[string]struct{}),
		functions: make(map[string]struct{}),
	}
}

// AddPage records an HTML page URL. It returns true if the URL was new.
func (rs *ResultSet) AddPage(url string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.pages[url]; ok {
		return false
	}
	rs.pages[url] = struct{}{}
	return true
}

// AddEndpoint records a backend endpoint URL. It returns true if new.
func (rs *ResultSet) AddEndpoint(url string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.endpoints[url]; ok {
		return false
	}
	rs.endpoints[url] = struct{}{}
	return true
}

// AddFunction records a JavaScript function name. It returns true if new.
func (rs *ResultSet) AddFunction(name string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.functions[name]; ok {
		return false
	}
	rs.functions[name] = struct{}{}
	return true
}

// AddFailure records a failed fetch for diagnostics.
func (rs *ResultSet) AddFailure(f model.FetchFailure) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.failures = append(rs.failures, f)
	rs.failed++
}

// IncCrawled counts one successfully fetched target.
func (rs *ResultSet) IncCrawled() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.crawled++
}

// IncDepthLimited counts one target dropped at the depth bound.
func (rs *ResultSet) IncDepthLimited() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.depthLimited++
}

// SetInterrupted marks the crawl as cancelled before the frontier drained.
func (rs *ResultSet) SetInterrupted() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.interrupted = true
}

// Stats returns a consistent copy of the running counts.
func (rs *ResultSet) Stats() model.Stats {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.statsLocked()
}

// statsLocked builds the stats struct. Callers must hold mu.
func (rs *ResultSet) statsLocked() model.Stats {
	return model.Stats{
		TotalHTML:      len(rs.pages),
		TotalBackend:   len(rs.endpoints),
		TotalFunctions: len(rs.functions),
		PagesCrawled:   rs.crawled,
		Failed:         rs.failed,
		DepthLimited:   rs.depthLimited,
		MaxDepth:       rs.maxDepth,
	}
}

// Snapshot returns a consistent report of everything recorded so far. The
// discovery lists are sorted, so a snapshot taken after the crawl reaches
// its terminal state is the deterministic final report.
func (rs *ResultSet) Snapshot() *model.ScanReport {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	report := &model.ScanReport{
		Target:           rs.target,
		StartedAt:        rs.startedAt,
		Duration:         time.Since(rs.startedAt),
		HTMLPages:        make([]string, 0, len(rs.pages)),
		BackendEndpoints: make([]string, 0, len(rs.endpoints)),
		Functions:        make([]string, 0, len(rs.functions)),
		Failures:         make([]model.FetchFailure, len(rs.failures)),
		Interrupted:      rs.interrupted,
		Stats:            rs.statsLocked(),
	}

	for url := range rs.pages {
		report.HTMLPages = append(report.HTMLPages, url)
	}
	for url := range rs.endpoints {
		report.BackendEndpoints = append(report.BackendEndpoints, url)
	}
	for name := range rs.functions {
		report.Functions = append(report.Functions, name)
	}
	copy(report.Failures, rs.failures)

	report.Sort()
	return report
}
