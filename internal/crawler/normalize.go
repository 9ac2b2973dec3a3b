package crawler

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// Kind classifies a normalized URL.
type Kind int

const (
	// KindHTMLPage is a URL believed to serve a rendered document.
	KindHTMLPage Kind = iota

	// KindBackendEndpoint is a URL believed to serve programmatic/API
	// responses or accept form submissions.
	KindBackendEndpoint

	// KindScript is a JavaScript source file. Scripts are fetched so that
	// function names and XHR targets can be extracted, but they are
	// reported in neither the page nor the endpoint list.
	KindScript

	// KindExternal is a URL on a different host than the seed. External
	// links are recorded nowhere and never traversed.
	KindExternal

	// KindUnsupported is a static asset (image, stylesheet, font, ...).
	// Unsupported links are dropped.
	KindUnsupported
)

// String returns the kind name used in logs and the database.
func (k Kind) String() string {
	switch k {
	case KindHTMLPage:
		return "html_page"
	case KindBackendEndpoint:
		return "backend_endpoint"
	case KindScript:
		return "script"
	case KindExternal:
		return "external"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// LinkContext records how a link was discovered. Classification of
// ambiguous script-extension URLs depends on this context: the same URL is
// a page when reached by plain navigation but an endpoint when reached via
// a form action or an XHR-style reference.
type LinkContext int

const (
	// ContextNavigation is an ordinary navigational link (a, frame, iframe).
	ContextNavigation LinkContext = iota

	// ContextForm is a form action target.
	ContextForm

	// ContextScript is a script src or an XHR/fetch call target found in
	// JavaScript source.
	ContextScript
)

// ErrUnsupportedScheme is returned by Normalize for non-HTTP(S) URLs.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Normalize resolves a raw link against base and canonicalizes it:
// fragments are stripped, scheme and host are lower-cased, default ports
// are removed, and an empty path becomes "/".
//
// Design decision: We normalize before deduplication because the same page
// can have many URL spellings. The fragment never changes server-side
// content, and "http://host" and "http://host/" must dedup to one key.
func Normalize(raw string, base *url.URL) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}

	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrUnsupportedScheme
	}
	if u.Host == "" {
		return nil, errors.New("URL has no host")
	}

	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)

	// Remove default ports so host:80 and host dedup together.
	if (u.Scheme == "http" && u.Port() == "80") ||
		(u.Scheme == "https" && u.Port() == "443") {
		u.Host = u.Hostname()
	}

	if u.Path == "" {
		u.Path = "/"
	}

	return u, nil
}

// staticAssetExts are extensions that are neither pages nor endpoints.
// The list follows what security crawlers conventionally exclude: fetching
// these yields nothing a discovery scan can use.
var staticAssetExts = map[string]bool{
	// Images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".svg": true, ".webp": true, ".ico": true,
	// Stylesheets
	".css": true,
	// Fonts
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	// Archives
	".zip": true, ".rar": true, ".tar": true, ".gz": true, ".7z": true,
	// Documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
	// Media
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".flv": true,
	".wmv": true, ".webm": true,
}

// scriptExts are JavaScript source extensions.
var scriptExts = map[string]bool{
	".js": true, ".mjs": true,
}

// backendExts are extensions that always indicate a programmatic endpoint,
// regardless of discovery context.
var backendExts = map[string]bool{
	".json": true, ".xml": true, ".ashx": true, ".asmx": true,
	".do": true, ".action": true, ".cgi": true,
}

// ambiguousExts are server-side script extensions that serve rendered
// content when navigated to but act as endpoints when targeted by a form
// or an XHR call. Discovery context decides.
var ambiguousExts = map[string]bool{
	".php": true, ".asp": true, ".aspx": true, ".jsp": true,
}

// markupExts are extensions that indicate a rendered document.
var markupExts = map[string]bool{
	".html": true, ".htm": true, ".cfm": true,
}

// apiPathSegments are path fragments that indicate an API surface.
var apiPathSegments = []string{"/api/", "/rest/", "/ws/", "/service"}

// apiQueryKeys are query parameter names that indicate an API-style call.
var apiQueryKeys = []string{"action", "method", "api_key"}

// Classify categorizes a normalized URL. It is a pure function of the URL,
// the discovery context, and the seed host: the same inputs always yield
// the same kind, and classification never fails.
func Classify(u *url.URL, linkCtx LinkContext, seedHost string) Kind {
	// Scope is the target application only.
	if !strings.EqualFold(u.Host, seedHost) {
		return KindExternal
	}

	ext := strings.ToLower(path.Ext(u.Path))

	switch {
	case staticAssetExts[ext]:
		return KindUnsupported
	case scriptExts[ext]:
		return KindScript
	case backendExts[ext]:
		return KindBackendEndpoint
	}

	lowerPath := strings.ToLower(u.Path)
	for _, seg := range apiPathSegments {
		if strings.Contains(lowerPath, seg) {
			return KindBackendEndpoint
		}
	}

	if u.RawQuery != "" {
		query := u.Query()
		for _, key := range apiQueryKeys {
			if query.Has(key) {
				return KindBackendEndpoint
			}
		}
	}

	if ambiguousExts[ext] {
		// Context rule: a form action or XHR reference marks the URL as an
		// endpoint; plain navigation defaults to a page.
		if linkCtx == ContextForm || linkCtx == ContextScript {
			return KindBackendEndpoint
		}
		return KindHTMLPage
	}

	if linkCtx == ContextForm {
		// A form posting to an extensionless path is still an endpoint.
		return KindBackendEndpoint
	}

	if ext == "" || markupExts[ext] {
		return KindHTMLPage
	}

	// Unknown extension reached by navigation: best-effort page.
	return KindHTMLPage
}

// RecordKey returns the form of a URL stored in the result set: the
// normalized URL without its query string. The visited key keeps the query
// (two query variants are distinct fetches), but the report records the
// clean resource path.
func RecordKey(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}
