package model

import (
	"sort"
	"time"
)

// ScanReport holds everything discovered during a single crawl of a target
// application. This is the stable JSON shape consumed by external tooling:
// the html_pages, backend_endpoints, functions, and stats fields must not
// be renamed.
//
// Design decision: We keep the three discovery lists as sorted []string
// rather than richer structs because:
//  1. The report is a contract with downstream tools expecting URL lists
//  2. Sorting makes reports deterministic for a fixed crawl
//  3. Per-resource detail (status, depth) lives in Failures and Stats
type ScanReport struct {
	// Target is the normalized seed URL the crawl started from.
	Target string `json:"target"`

	// StartedAt is the time the crawl began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total wall-clock time of the crawl.
	Duration time.Duration `json:"duration"`

	// HTMLPages contains every discovered rendered page URL, sorted.
	HTMLPages []string `json:"html_pages"`

	// BackendEndpoints contains every discovered API/service URL, sorted.
	BackendEndpoints []string `json:"backend_endpoints"`

	// Functions contains every JavaScript function name discovered, sorted.
	Functions []string `json:"functions"`

	// Failures lists per-URL fetch failures. These never abort a crawl;
	// they are recorded here for diagnostics.
	Failures []FetchFailure `json:"failures,omitempty"`

	// Interrupted is true when the crawl was cancelled before the frontier
	// drained. The report then contains partial results.
	Interrupted bool `json:"interrupted,omitempty"`

	// Stats summarizes the crawl.
	Stats Stats `json:"stats"`
}

// Stats holds running and final counts for a crawl.
type Stats struct {
	// TotalHTML is the number of distinct HTML pages discovered.
	TotalHTML int `json:"total_html"`

	// TotalBackend is the number of distinct backend endpoints discovered.
	TotalBackend int `json:"total_backend"`

	// TotalFunctions is the number of distinct JavaScript function names.
	TotalFunctions int `json:"total_functions"`

	// PagesCrawled is the number of URLs actually fetched.
	PagesCrawled int `json:"pages_crawled"`

	// Failed is the number of fetches that ended in an error.
	Failed int `json:"failed"`

	// DepthLimited is the number of targets discovered beyond the depth
	// bound and therefore never fetched.
	DepthLimited int `json:"depth_limited"`

	// MaxDepth is the configured traversal bound for this crawl.
	MaxDepth int `json:"max_depth"`
}

// FetchFailure records a single failed fetch for diagnostics.
type FetchFailure struct {
	// URL is the normalized URL that failed to fetch.
	URL string `json:"url"`

	// Kind categorizes the failure (timeout, connection_refused, ...).
	Kind string `json:"kind"`

	// Status is the HTTP status code for http_status failures, zero otherwise.
	Status int `json:"status,omitempty"`
}

// NewScanReport creates an empty report for the given target.
func NewScanReport(target string) *ScanReport {
	return &ScanReport{
		Target:           target,
		StartedAt:        time.Now(),
		HTMLPages:        make([]string, 0),
		BackendEndpoints: make([]string, 0),
		Functions:        make([]string, 0),
		Failures:         make([]FetchFailure, 0),
	}
}

// Sort orders the discovery lists lexicographically so that two crawls of
// the same site produce byte-identical reports.
func (r *ScanReport) Sort() {
	sort.Strings(r.HTMLPages)
	sort.Strings(r.BackendEndpoints)
	sort.Strings(r.Functions)
	sort.Slice(r.Failures, func(i, j int) bool {
		return r.Failures[i].URL < r.Failures[j].URL
	})
}

// TotalDiscovered returns the combined count of pages, endpoints, and
// functions in the report.
func (r *ScanReport) TotalDiscovered() int {
	return len(r.HTMLPages) + len(r.BackendEndpoints) + len(r.Functions)
}
