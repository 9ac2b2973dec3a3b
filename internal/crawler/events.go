package crawler

import "github.com/PiCarODD/DeepCrawl/internal/model"

// EventKind identifies a progress event type.
type EventKind int

const (
	// EventPage fires when a new HTML page enters the result set.
	EventPage EventKind = iota

	// EventEndpoint fires when a new backend endpoint enters the result set.
	EventEndpoint

	// EventFunction fires when a new JavaScript function name is recorded.
	EventFunction

	// EventFetchFailed fires when a target's fetch fails.
	EventFetchFailed

	// EventDepthLimit fires when a target beyond the depth bound is dropped
	// at dispatch.
	EventDepthLimit

	// EventDone fires once when the crawl reaches its terminal state.
	EventDone
)

// Event is one entry in the progress stream from the engine to the
// external reporter. Events are emitted as the engine resolves each
// target; the reporter is a pure consumer and must never block the engine,
// so delivery is best-effort (see Engine).
type Event struct {
	// Kind is the event type.
	Kind EventKind

	// URL is the resource URL for page/endpoint/failure/depth events.
	URL string

	// Function is the function name for EventFunction.
	Function string

	// FailureKind names the fetch failure category for EventFetchFailed.
	FailureKind string

	// Depth is the target depth for EventDepthLimit.
	Depth int

	// Stats carries running counts, and final counts on EventDone.
	Stats model.Stats
}
