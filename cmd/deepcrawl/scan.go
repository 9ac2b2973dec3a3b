package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/PiCarODD/DeepCrawl/internal/config"
	"github.com/PiCarODD/DeepCrawl/internal/crawler"
	"github.com/PiCarODD/DeepCrawl/internal/database"
	"github.com/PiCarODD/DeepCrawl/internal/log"
	"github.com/PiCarODD/DeepCrawl/internal/model"
	"github.com/PiCarODD/DeepCrawl/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "Crawl a web application and map its attack surface",
		Long: `Scan crawls a web application starting from the given seed URL.

It follows same-host links breadth-first up to the configured depth and
classifies every discovery:
- Rendered HTML pages
- Backend endpoints (API routes, service extensions, action parameters)
- JavaScript function names from inline and external scripts

Examples:
  # Scan a single application
  deepcrawl scan https://shop.example.com

  # Scan multiple applications concurrently
  deepcrawl scan site1.example.com site2.example.com

  # Deeper crawl with throttling
  deepcrawl scan --depth 5 --rate 10 https://shop.example.com

  # Output JSON report to a file
  deepcrawl scan --json -o report.json https://shop.example.com

  # Use a custom configuration file
  deepcrawl scan -c myconfig.yaml https://shop.example.com

Configuration file (.deepcrawl) example:
  sites:
    shop.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 5
      ignorePatterns:
        - "/logout*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link distance from the seed (0 = seed page only)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of concurrent fetch workers per scan")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Float64P("rate", "r", 0,
		"Maximum requests per second (0 = unthrottled)")
	cmd.Flags().Int64("max-body", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header for requests")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans when multiple URLs are given")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .deepcrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().BoolP("quiet", "q", false,
		"Suppress live discovery output (failures are still shown)")

	// Persistence flags
	cmd.Flags().Bool("no-save", false,
		"Do not save scan results to the local database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up secure structured logging
	logger := log.NewSecureLogger(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown.
	// A signal cancels the crawls; partial results are still reported.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	return runScan(ctx, cfg, quiet, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.CrawlDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.RateLimit, err = cmd.Flags().GetFloat64("rate")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If the user explicitly specified a config file path, error if it is
	// missing; otherwise an absent file just means an empty config.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	// Positional arguments are the seed URLs. Bare hosts get an http://
	// scheme so "example.com" works as a seed.
	cfg.Seeds = make([]string, 0, len(args))
	for _, arg := range args {
		cfg.Seeds = append(cfg.Seeds, ensureScheme(arg))
	}

	return cfg, nil
}

// ensureScheme prefixes bare hosts with http:// so URL parsing treats the
// argument as an absolute URL.
func ensureScheme(seed string) string {
	if strings.Contains(seed, "://") {
		return seed
	}
	return "http://" + seed
}

// runScan executes the scan for all configured seeds.
func runScan(ctx context.Context, cfg *config.Config, quiet bool, logger *slog.Logger) error {
	// A malformed seed is a usage error, not a crawl failure: reject the
	// whole invocation before any crawl starts so the CLI exits non-zero.
	for _, seed := range cfg.Seeds {
		if _, err := crawler.Normalize(seed, nil); err != nil {
			return fmt.Errorf("invalid seed URL %q: %w", seed, err)
		}
	}

	logger.Info("starting scan",
		"seeds", cfg.Seeds,
		"depth", cfg.CrawlDepth,
		"concurrency", cfg.Concurrency,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.ScanDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	if len(cfg.Seeds) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, db, logger)
	}

	return runSequentialScan(ctx, cfg, db, quiet, logger)
}

// runSequentialScan scans seeds one at a time.
func runSequentialScan(ctx context.Context, cfg *config.Config, db *database.ScanDB, quiet bool, logger *slog.Logger) error {
	for _, seed := range cfg.Seeds {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("Scanning %s...\n", seed)
		startTime := time.Now()

		scanReport, err := scanTarget(ctx, cfg, seed, quiet, logger)
		if err != nil {
			logger.Error("scan failed", "seed", seed, "error", err)
			fmt.Fprintf(os.Stderr, "Scan error for %s: %v\n", seed, err)
			continue
		}

		fmt.Printf("Scan completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

		if err := outputReport(cfg, scanReport); err != nil {
			logger.Error("report failed", "seed", seed, "error", err)
		}

		if err := saveScanReport(ctx, db, scanReport, logger); err != nil {
			logger.Error("failed to save scan report", "seed", seed, "error", err)
		}
	}

	return nil
}

// runBatchScan scans multiple seeds concurrently.
// Live discovery output is suppressed in batch mode so the interleaved
// streams of several crawls do not garble the terminal; per-seed reports
// are printed as each scan completes.
func runBatchScan(ctx context.Context, cfg *config.Config, db *database.ScanDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch scan of %d targets (concurrency: %d)...\n\n",
		len(cfg.Seeds), cfg.BatchSize)

	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BatchSize)

	var mu sync.Mutex
	completed := 0

	for _, seed := range cfg.Seeds {
		seed := seed
		g.Go(func() error {
			scanReport, err := scanTarget(gctx, cfg, seed, true, logger)
			if err != nil {
				logger.Error("scan failed", "seed", seed, "error", err)
				mu.Lock()
				fmt.Fprintf(os.Stderr, "Scan error for %s: %v\n", seed, err)
				mu.Unlock()
				return nil // one bad seed never aborts the batch
			}

			mu.Lock()
			defer mu.Unlock()

			completed++
			fmt.Printf("[%d/%d] Scan completed: %s\n", completed, len(cfg.Seeds), seed)

			if err := outputReport(cfg, scanReport); err != nil {
				logger.Error("report failed", "seed", seed, "error", err)
			}
			if err := saveScanReport(ctx, db, scanReport, logger); err != nil {
				logger.Error("failed to save scan report", "seed", seed, "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	fmt.Printf("\nBatch scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	return err
}

// scanTarget runs one crawl with per-site configuration applied.
func scanTarget(ctx context.Context, cfg *config.Config, seed string, quiet bool, logger *slog.Logger) (*model.ScanReport, error) {
	siteConfig := siteConfigFor(cfg, seed)

	fetcherOpts := []crawler.FetcherOption{
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
	}
	if cfg.MaxBodySize > 0 {
		fetcherOpts = append(fetcherOpts, crawler.WithMaxBodySize(cfg.MaxBodySize))
	}
	if siteConfig.Cookie != "" {
		fetcherOpts = append(fetcherOpts, crawler.WithCookie(siteConfig.Cookie))
	}
	if len(siteConfig.Headers) > 0 {
		fetcherOpts = append(fetcherOpts, crawler.WithHeaders(siteConfig.Headers))
	}

	depth := cfg.CrawlDepth
	if siteConfig.Depth > 0 {
		depth = siteConfig.Depth
	}

	engineOpts := []crawler.Option{
		crawler.WithMaxDepth(depth),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithLogger(logger),
	}
	if cfg.RateLimit > 0 {
		engineOpts = append(engineOpts, crawler.WithRateLimit(cfg.RateLimit))
	}
	if len(siteConfig.IgnorePatterns) > 0 || len(siteConfig.FollowPatterns) > 0 {
		engineOpts = append(engineOpts, crawler.WithScope(
			crawler.NewScope(siteConfig.IgnorePatterns, siteConfig.FollowPatterns),
		))
	}

	engine := crawler.New(crawler.NewFetcher(nil, fetcherOpts...), engineOpts...)

	// Stream discoveries to the terminal while the crawl runs.
	live := report.NewLiveReporter(os.Stdout, report.WithQuiet(quiet))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		live.Consume(engine.Events())
	}()

	scanReport, err := engine.Run(ctx, seed)
	wg.Wait()
	if err != nil {
		return nil, err
	}

	return scanReport, nil
}

// siteConfigFor returns the merged site configuration for a seed URL.
// Sites are keyed by host; a seed with no entry gets the defaults.
func siteConfigFor(cfg *config.Config, seed string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}

	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return cfg.SiteConfigs.Defaults
	}

	return cfg.SiteConfigs.GetSiteConfig(u.Host)
}

// outputReport outputs the scan report in the requested format.
func outputReport(cfg *config.Config, scanReport *model.ScanReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain session cookies or internal URLs, so the
		// file is owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	_, err := writer.Write(scanReport)
	return err
}

// saveScanReport saves the scan report to the database if enabled.
// If db is nil, this function is a no-op.
func saveScanReport(ctx context.Context, db *database.ScanDB, scanReport *model.ScanReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveReport(ctx, scanReport)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	logger.Info("scan report saved to database", "target", scanReport.Target, "id", id)
	return nil
}
