package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/PiCarODD/DeepCrawl/internal/crawler"
)

// LiveReporter prints discoveries to the terminal as they happen by
// consuming an engine's event stream. Pages, endpoints, functions, and
// failures each get their own color so a scan is readable at a glance.
//
// Design decision: The reporter is a pure consumer on its own goroutine.
// The engine never blocks on it; if the reporter falls behind, the engine
// drops events rather than stalling the crawl, so the live view is best
// effort while the final report stays complete.
type LiveReporter struct {
	out io.Writer

	// quiet suppresses per-discovery lines, leaving only failures.
	quiet bool

	page     *color.Color
	endpoint *color.Color
	function *color.Color
	failure  *color.Color
	notice   *color.Color
}

// LiveReporterOption configures a LiveReporter.
type LiveReporterOption func(*LiveReporter)

// WithQuiet suppresses per-discovery output, printing failures only.
func WithQuiet(quiet bool) LiveReporterOption {
	return func(r *LiveReporter) {
		r.quiet = quiet
	}
}

// NewLiveReporter creates a LiveReporter writing to out.
func NewLiveReporter(out io.Writer, opts ...LiveReporterOption) *LiveReporter {
	r := &LiveReporter{
		out:      out,
		page:     color.New(color.FgBlue),
		endpoint: color.New(color.FgGreen),
		function: color.New(color.FgYellow),
		failure:  color.New(color.FgRed),
		notice:   color.New(color.FgCyan),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Consume drains the event stream until the engine closes it.
// It is meant to run on its own goroutine alongside Engine.Run.
func (r *LiveReporter) Consume(events <-chan crawler.Event) {
	for ev := range events {
		switch ev.Kind {
		case crawler.EventPage:
			if !r.quiet {
				_, _ = r.page.Fprintf(r.out, "[PAGE]     %s\n", ev.URL)
			}
		case crawler.EventEndpoint:
			if !r.quiet {
				_, _ = r.endpoint.Fprintf(r.out, "[ENDPOINT] %s\n", ev.URL)
			}
		case crawler.EventFunction:
			if !r.quiet {
				_, _ = r.function.Fprintf(r.out, "[FUNCTION] %s\n", ev.Function)
			}
		case crawler.EventFetchFailed:
			_, _ = r.failure.Fprintf(r.out, "[FAILED]   %s (%s)\n", ev.URL, ev.FailureKind)
		case crawler.EventDepthLimit:
			if !r.quiet {
				_, _ = r.notice.Fprintf(r.out, "[SKIPPED]  %s (depth %d)\n", ev.URL, ev.Depth)
			}
		case crawler.EventDone:
			_, _ = fmt.Fprintf(r.out, "Discovered %d pages, %d endpoints, %d functions (%d failed)\n",
				ev.Stats.TotalHTML,
				ev.Stats.TotalBackend,
				ev.Stats.TotalFunctions,
				ev.Stats.Failed,
			)
		}
	}
}
