package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/PiCarODD/DeepCrawl/internal/model"
)

// Default engine settings.
const (
	// DefaultMaxDepth bounds traversal three levels below the seed, which
	// covers the navigable surface of most applications without runaway
	// growth on large sites.
	DefaultMaxDepth = 3

	// DefaultConcurrency is the fetch worker pool size.
	DefaultConcurrency = 10

	// DefaultEventBuffer is the progress channel capacity. The reporter is
	// a pure consumer; events beyond this backlog are dropped rather than
	// blocking the engine.
	DefaultEventBuffer = 256
)

// Target is one frontier entry: a claimed URL awaiting fetch+extract.
// Targets are created when a link is discovered, consumed exactly once,
// and never mutated.
type Target struct {
	// URL is the normalized absolute URL (the visited key).
	URL string

	// Depth is the link distance from the seed at first claim.
	Depth int

	// Kind is the classification decided at discovery time.
	Kind Kind
}

// Engine is the frontier scheduler: it maintains the work queue of
// (URL, depth) targets, enforces the depth bound, dispatches fetch+extract
// work to a fixed worker pool, and folds results into the visited set and
// the result set.
//
// Design decision: The visited and result sets are owned by the engine and
// shared by reference with its workers rather than living in package-level
// state, so concurrent crawls never interfere and tests can run in
// parallel.
type Engine struct {
	// fetcher performs the bounded-timeout GETs.
	fetcher *Fetcher

	// maxDepth is the traversal bound, applied at dispatch time.
	maxDepth int

	// concurrency is the number of fetch workers.
	concurrency int

	// limiter throttles fetches across all workers. Nil means unthrottled.
	limiter *rate.Limiter

	// scope filters candidate targets by path pattern.
	scope *Scope

	// logger receives structured crawl diagnostics.
	logger *slog.Logger

	// events is the progress stream consumed by the external reporter.
	// It is closed when Run returns.
	events chan Event
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth sets the traversal bound. Depth 0 means only the seed page.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth >= 0 {
			e.maxDepth = depth
		}
	}
}

// WithConcurrency sets the fetch worker pool size.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRateLimit throttles fetching to the given requests per second across
// all workers. Zero or negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(e *Engine) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithScope restricts the crawl to the given ignore/follow path patterns.
func WithScope(scope *Scope) Option {
	return func(e *Engine) {
		e.scope = scope
	}
}

// WithLogger sets a custom logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine that fetches with the given Fetcher.
func New(fetcher *Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		maxDepth:    DefaultMaxDepth,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		events:      make(chan Event, DefaultEventBuffer),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Events returns the progress stream. The channel is closed when Run
// returns, so consumers can simply range over it.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// outcome is what a worker reports back for one dispatched target.
type outcome struct {
	target    Target
	fetchErr  *FetchError
	extracted ExtractResult
	fetched   bool
	cancelled bool
}

// Run crawls from seedURL until the frontier drains or ctx is cancelled,
// and returns the final report. Cancellation stops admission of new
// dispatches, lets in-flight fetches complete or hit their own timeout,
// and reports partial results with the Interrupted flag set.
//
// Only seed-level problems are returned as errors; per-target failures are
// folded into the report and the event stream.
func (e *Engine) Run(ctx context.Context, seedURL string) (*model.ScanReport, error) {
	defer close(e.events)

	seed, err := Normalize(seedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL %q: %w", seedURL, err)
	}

	visited := NewVisited()
	results := NewResultSet(seed.String(), e.maxDepth)

	visited.TryClaim(seed.String())
	pending := []Target{{
		URL:   seed.String(),
		Depth: 0,
		Kind:  Classify(seed, ContextNavigation, seed.Host),
	}}

	jobs := make(chan Target)
	outcomes := make(chan outcome)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.concurrency; i++ {
		g.Go(func() error {
			e.worker(gctx, jobs, outcomes)
			return nil
		})
	}

	e.logger.Info("crawl started",
		"seed", seed.String(),
		"maxDepth", e.maxDepth,
		"concurrency", e.concurrency,
	)

	inflight := 0
	cancelled := false

	for inflight > 0 || len(pending) > 0 {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			results.SetInterrupted()
			e.logger.Warn("crawl cancelled, draining in-flight fetches",
				"inflight", inflight,
				"dropped", len(pending),
			)
		}

		if cancelled {
			// Stop admitting; the remaining frontier is discarded but
			// in-flight outcomes still count toward the partial report.
			pending = pending[:0]
			if inflight == 0 {
				break
			}
			out := <-outcomes
			inflight--
			e.resolve(out, seed, visited, results, &pending)
			continue
		}

		if len(pending) > 0 {
			next := pending[0]

			// The depth bound is the traversal limit, applied at dispatch
			// time so rediscovered deep targets are each checked against it.
			if next.Depth > e.maxDepth {
				pending = pending[1:]
				results.IncDepthLimited()
				e.emit(Event{Kind: EventDepthLimit, URL: next.URL, Depth: next.Depth, Stats: results.Stats()})
				continue
			}

			select {
			case jobs <- next:
				pending = pending[1:]
				inflight++
			case out := <-outcomes:
				inflight--
				e.resolve(out, seed, visited, results, &pending)
			case <-ctx.Done():
			}
			continue
		}

		select {
		case out := <-outcomes:
			inflight--
			e.resolve(out, seed, visited, results, &pending)
		case <-ctx.Done():
		}
	}

	close(jobs)
	if err := g.Wait(); err != nil {
		e.logger.Error("worker pool error", "error", err)
	}

	report := results.Snapshot()
	e.emit(Event{Kind: EventDone, Stats: report.Stats})

	e.logger.Info("crawl finished",
		"seed", seed.String(),
		"pages", report.Stats.TotalHTML,
		"endpoints", report.Stats.TotalBackend,
		"functions", report.Stats.TotalFunctions,
		"failed", report.Stats.Failed,
		"interrupted", report.Interrupted,
	)

	return report, nil
}

// worker drains the jobs channel, fetching and extracting inline.
// Extraction and classification are pure and cheap, so they run in the
// same goroutine as the fetch that produced their input; the only other
// suspension point is the rate limiter.
func (e *Engine) worker(ctx context.Context, jobs <-chan Target, outcomes chan<- outcome) {
	for t := range jobs {
		if ctx.Err() != nil {
			outcomes <- outcome{target: t, cancelled: true}
			continue
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				outcomes <- outcome{target: t, cancelled: true}
				continue
			}
		}

		res, ferr := e.fetcher.Fetch(ctx, t.URL)
		if ferr != nil {
			// A request aborted by crawl cancellation is not a fetch
			// failure: the report stays partial instead of gaining a
			// spurious malformed entry per in-flight URL.
			if errors.Is(ferr.Err, context.Canceled) {
				outcomes <- outcome{target: t, cancelled: true}
				continue
			}
			outcomes <- outcome{target: t, fetchErr: ferr}
			continue
		}

		outcomes <- outcome{
			target:    t,
			fetched:   true,
			extracted: Extract(res.Body, res.ContentType, t.Kind),
		}
	}
}

// resolve folds one worker outcome into the crawl state: the result set is
// updated, progress events fire, and newly discovered links are
// classified, claimed, and admitted to the frontier at depth+1.
func (e *Engine) resolve(out outcome, seed *url.URL, visited *Visited, results *ResultSet, pending *[]Target) {
	t := out.target

	if out.cancelled {
		return
	}

	if out.fetchErr != nil {
		results.AddFailure(model.FetchFailure{
			URL:    t.URL,
			Kind:   out.fetchErr.Kind.String(),
			Status: out.fetchErr.Status,
		})
		e.emit(Event{Kind: EventFetchFailed, URL: t.URL, FailureKind: out.fetchErr.Kind.String(), Stats: results.Stats()})
		e.logger.Debug("fetch failed", "url", t.URL, "kind", out.fetchErr.Kind.String())
		return
	}

	results.IncCrawled()

	base, err := url.Parse(t.URL)
	if err != nil {
		// Target URLs come from Normalize and always reparse.
		return
	}

	// Resources enter the result set only once their own fetch succeeds.
	// Scripts are fetched for extraction but reported in neither list.
	switch t.Kind {
	case KindHTMLPage:
		if record := RecordKey(base); results.AddPage(record) {
			e.emit(Event{Kind: EventPage, URL: record, Stats: results.Stats()})
		}
	case KindBackendEndpoint:
		if record := RecordKey(base); results.AddEndpoint(record) {
			e.emit(Event{Kind: EventEndpoint, URL: record, Stats: results.Stats()})
		}
	}

	for _, fn := range out.extracted.Functions {
		if results.AddFunction(fn) {
			e.emit(Event{Kind: EventFunction, Function: fn, Stats: results.Stats()})
		}
	}

	for _, link := range out.extracted.Links {
		u, err := Normalize(link.Href, base)
		if err != nil {
			// Malformed links are dropped silently, never fatal.
			continue
		}

		kind := Classify(u, link.Context, seed.Host)
		if kind == KindExternal || kind == KindUnsupported {
			continue
		}
		if !e.scope.Admits(u) {
			continue
		}

		// The visited set is the sole dedup authority: claim losers are
		// dropped here, so the first-seen depth wins.
		key := u.String()
		if !visited.TryClaim(key) {
			continue
		}

		*pending = append(*pending, Target{URL: key, Depth: t.Depth + 1, Kind: kind})
	}
}

// emit delivers an event without ever blocking the engine: when the
// reporter lags behind the buffer, the event is dropped.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
