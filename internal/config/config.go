package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen so an unconfigured scan of a typical web
// application finishes in seconds without hammering the target.
const (
	// DefaultTimeout is the per-request timeout. 10 seconds is generous
	// for a healthy web server; anything slower is reported as a timeout
	// failure rather than stalling a worker indefinitely.
	DefaultTimeout = 10 * time.Second

	// DefaultCrawlDepth bounds traversal three levels below the seed.
	// This covers the navigable surface of most applications while
	// preventing runaway growth on large sites. Larger sites may need
	// this increased via the --depth CLI flag.
	DefaultCrawlDepth = 3

	// DefaultConcurrency is the fetch worker pool size. Ten concurrent
	// requests saturates discovery on most targets without tripping
	// rate limiting or connection caps.
	DefaultConcurrency = 10

	// DefaultBatchSize is the number of concurrent scans when processing
	// multiple seed URLs. Each scan runs its own worker pool, so this is
	// kept small to bound total outbound connections.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "deepcrawl"

	// DefaultUserAgent identifies DeepCrawl in HTTP requests.
	// A descriptive User-Agent lets operators identify scanner traffic
	// in their logs.
	DefaultUserAgent = "DeepCrawl/1.0 (+https://github.com/PiCarODD/DeepCrawl)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages and script bundles while
	// preventing memory exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Config holds all configuration options for DeepCrawl.
// This struct is populated from CLI flags and passed through the
// application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Seeds is the list of URLs to scan. Each seed gets its own crawl and
	// its own report. URLs without a scheme are assumed to be http://.
	Seeds []string

	// CrawlDepth is the maximum link distance from the seed.
	// Depth 0 means only fetch the seed page.
	CrawlDepth int

	// Concurrency is the fetch worker pool size per crawl.
	Concurrency int

	// Timeout is the timeout applied to each HTTP request, not the
	// overall scan duration.
	Timeout time.Duration

	// RateLimit throttles fetching to this many requests per second
	// across all workers of a crawl. Zero means unthrottled.
	RateLimit float64

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are recorded as too_large failures.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// BatchSize is the number of concurrent scans when several seeds are
	// given. Each scan runs independently with its own report.
	BatchSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of the human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .deepcrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the
	// config file. Populated by LoadConfigFile and consulted per host.
	SiteConfigs *File

	// DBDir is the directory path for storing the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/deepcrawl on Linux).
	DBDir string

	// SaveToDB indicates whether to save scan results to the database
	// for later inspection with the history command.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, depth).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		CrawlDepth:  DefaultCrawlDepth,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		MaxBodySize: DefaultMaxBodySize,
		UserAgent:   DefaultUserAgent,
		BatchSize:   DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for DeepCrawl.
// On Linux: ~/.local/share/deepcrawl
// On macOS: ~/Library/Application Support/deepcrawl
// On Windows: %LOCALAPPDATA%\deepcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for DeepCrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scanning begins.
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	if c.CrawlDepth < 0 {
		return ErrInvalidDepth
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
