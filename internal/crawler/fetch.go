package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// FetchErrorKind categorizes why a fetch failed.
type FetchErrorKind int

const (
	// FetchTimeout means the request exceeded its per-request timeout.
	FetchTimeout FetchErrorKind = iota

	// FetchConnectionRefused means the target refused the TCP connection.
	FetchConnectionRefused

	// FetchHTTPStatus means the server answered with a non-2xx status.
	FetchHTTPStatus

	// FetchTooLarge means the response body exceeded the configured cap.
	FetchTooLarge

	// FetchMalformed means the request could not be built or the response
	// framing was invalid.
	FetchMalformed
)

// String returns the kind name used in events and diagnostics.
func (k FetchErrorKind) String() string {
	switch k {
	case FetchTimeout:
		return "timeout"
	case FetchConnectionRefused:
		return "connection_refused"
	case FetchHTTPStatus:
		return "http_status"
	case FetchTooLarge:
		return "too_large"
	case FetchMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// FetchError describes a single failed fetch. Fetch failures are
// per-target recoverable: they are recorded against the target and never
// abort the crawl.
type FetchError struct {
	// URL is the URL that failed.
	URL string

	// Kind categorizes the failure.
	Kind FetchErrorKind

	// Status is the HTTP status code for FetchHTTPStatus failures.
	Status int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchResult holds a successfully fetched response body.
type FetchResult struct {
	// Body is the response body, capped at the fetcher's size limit.
	Body []byte

	// ContentType is the response Content-Type header value.
	ContentType string

	// StatusCode is the HTTP status code (always 2xx here).
	StatusCode int
}

// Default fetcher settings.
const (
	// DefaultUserAgent identifies DeepCrawl in HTTP requests. A descriptive
	// User-Agent lets operators identify scanner traffic in their logs.
	DefaultUserAgent = "DeepCrawl/1.0 (+https://github.com/PiCarODD/DeepCrawl)"

	// DefaultMaxBodySize caps response bodies at 5MB. Large enough for any
	// real page or script, small enough to bound memory per worker.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultRequestTimeout bounds a single fetch.
	DefaultRequestTimeout = 10 * time.Second
)

// Fetcher performs single bounded-timeout HTTP GETs. It is the only
// component that touches the network, and it holds no crawl state: it
// never consults or mutates the visited or result sets.
type Fetcher struct {
	// client is the HTTP client used for all requests.
	client *http.Client

	// timeout bounds each individual request.
	timeout time.Duration

	// userAgent is the User-Agent header to send.
	userAgent string

	// cookie is an optional Cookie header (site config).
	cookie string

	// headers are optional extra request headers (site config).
	headers map[string]string

	// maxBodySize caps how many body bytes are read.
	maxBodySize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithCookie sets a Cookie header sent with every request.
// Format: "name=value" or "name1=value1; name2=value2".
func WithCookie(cookie string) FetcherOption {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithHeaders sets extra request headers sent with every request.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithMaxBodySize sets the response body size cap in bytes.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewFetcher creates a Fetcher using the given HTTP client.
//
// Design decision: We accept an external client rather than building one
// because it keeps transport configuration (proxies, TLS settings) out of
// this package and allows tests to inject httptest clients. Pass nil to
// use a default client.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}

	f := &Fetcher{
		client:      client,
		timeout:     DefaultRequestTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch performs one HTTP GET of the given URL. On success it returns the
// body and content type; on failure it returns a *FetchError categorizing
// what went wrong. Fetch has no side effects beyond the network call.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, *FetchError) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Kind: FetchMalformed, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Kind: classifyFetchErr(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: rawURL, Kind: FetchHTTPStatus, Status: resp.StatusCode}
	}

	// Read one byte past the cap so oversized bodies are detected rather
	// than silently truncated.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Kind: classifyFetchErr(err), Err: err}
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, &FetchError{URL: rawURL, Kind: FetchTooLarge}
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

// classifyFetchErr maps a transport error onto a FetchErrorKind.
func classifyFetchErr(err error) FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FetchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FetchTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return FetchConnectionRefused
	}
	return FetchMalformed
}
