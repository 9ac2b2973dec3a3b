// Package crawler implements the DeepCrawl discovery engine.
//
// # Architecture
//
// The package is built around the Engine type, which coordinates the crawl:
// it maintains a frontier of (URL, depth) targets, dispatches fetches to a
// fixed pool of workers, and folds extraction results back into the visited
// set and the aggregate result set.
//
// Design decision: We implement our own engine rather than using a crawling
// framework because:
//  1. Classification depends on discovery context (navigation vs form vs
//     script reference), which frameworks don't thread through
//  2. We need exact first-claim deduplication semantics
//  3. The traversal bound is applied at dispatch time, not discovery time
//
// # Components
//
//   - Engine: frontier scheduler and worker pool coordinator
//   - Fetcher: bounded-timeout HTTP GET, the only network-touching component
//   - Extractor: HTML link/form extraction plus lexical JavaScript scanning
//   - Visited: linearizable check-and-insert deduplication ledger
//   - ResultSet: deduplicated pages, endpoints, and function names
//
// # Usage
//
//	engine := crawler.New(fetcher, crawler.WithMaxDepth(3))
//	report, err := engine.Run(ctx, "http://target.example")
//
// # Resource bounds
//
// Concurrency is capped by the worker pool size, response bodies by the
// fetcher's size limit, and traversal by the depth bound. The frontier
// itself is unbounded in count; the depth bound is what caps the total
// reachable target set.
package crawler
