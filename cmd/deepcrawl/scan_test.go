package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PiCarODD/DeepCrawl/internal/config"
	"github.com/PiCarODD/DeepCrawl/internal/database"
	"github.com/PiCarODD/DeepCrawl/internal/model"
)

// TestNewScanCmd verifies the scan command definition.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	if !strings.HasPrefix(cmd.Use, "scan") {
		t.Errorf("expected use to start with 'scan', got %q", cmd.Use)
	}

	for _, name := range []string{
		"depth", "concurrency", "timeout", "rate", "max-body",
		"user-agent", "batch", "config", "json", "markdown",
		"output", "quiet", "no-save",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %q flag", name)
		}
	}
}

// TestEnsureScheme verifies seed URL normalization.
func TestEnsureScheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "http://example.com"},
		{"example.com:8080/app", "http://example.com:8080/app"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
	}

	for _, tt := range tests {
		if got := ensureScheme(tt.in); got != tt.want {
			t.Errorf("ensureScheme(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestBuildConfig verifies flag-to-config mapping.
func TestBuildConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cmd := NewScanCmd()
		if err := cmd.ParseFlags(nil); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if cfg.CrawlDepth != config.DefaultCrawlDepth {
			t.Errorf("expected default depth, got %d", cfg.CrawlDepth)
		}
		if cfg.Concurrency != config.DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", cfg.Concurrency)
		}
		if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "http://example.com" {
			t.Errorf("expected scheme-prefixed seed, got %v", cfg.Seeds)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB by default")
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		cmd := NewScanCmd()
		args := []string{
			"--depth", "5",
			"--concurrency", "3",
			"--timeout", "2s",
			"--rate", "10",
			"--json",
			"--no-save",
		}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if cfg.CrawlDepth != 5 || cfg.Concurrency != 3 {
			t.Errorf("unexpected crawl settings: %+v", cfg)
		}
		if cfg.Timeout != 2*time.Second {
			t.Errorf("expected 2s timeout, got %v", cfg.Timeout)
		}
		if cfg.RateLimit != 10 {
			t.Errorf("expected rate 10, got %f", cfg.RateLimit)
		}
		if !cfg.JSONReport {
			t.Error("expected JSON report")
		}
		if cfg.SaveToDB {
			t.Error("expected SaveToDB disabled with --no-save")
		}
	})

	t.Run("missing explicit config file errors", func(t *testing.T) {
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatal(err)
		}

		if _, err := buildConfig(cmd, []string{"example.com"}); err == nil {
			t.Error("expected an error for a missing explicit config file")
		}
	})

	t.Run("loads explicit config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf.yaml")
		content := "sites:\n  shop.example.com:\n    depth: 7\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"shop.example.com"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		site := cfg.SiteConfigs.GetSiteConfig("shop.example.com")
		if site.Depth != 7 {
			t.Errorf("expected site depth 7, got %d", site.Depth)
		}
	})
}

// TestSiteConfigFor verifies host-keyed site config lookup.
func TestSiteConfigFor(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.SiteConfigs = &config.File{
		Defaults: config.SiteConfig{Depth: 2},
		Sites: map[string]config.SiteConfig{
			"shop.example.com": {Cookie: "session=abc", Depth: 5},
		},
	}

	t.Run("matching host gets overrides", func(t *testing.T) {
		t.Parallel()
		got := siteConfigFor(cfg, "http://shop.example.com/start")
		if got.Cookie != "session=abc" || got.Depth != 5 {
			t.Errorf("unexpected site config: %+v", got)
		}
	})

	t.Run("other host gets defaults", func(t *testing.T) {
		t.Parallel()
		got := siteConfigFor(cfg, "http://other.example.com/")
		if got.Depth != 2 || got.Cookie != "" {
			t.Errorf("unexpected site config: %+v", got)
		}
	})

	t.Run("nil site configs yield zero value", func(t *testing.T) {
		t.Parallel()
		bare := config.NewConfig()
		got := siteConfigFor(bare, "http://example.com/")
		if got.Depth != 0 || got.Cookie != "" {
			t.Errorf("expected zero config, got %+v", got)
		}
	})
}

// TestScanTarget crawls a local server end to end through the CLI plumbing.
func TestScanTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<a href="/about">about</a>
			<form action="/api/save"></form>
			<script>function validateForm(){}</script>
		</body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>about</body></html>`))
	})
	mux.HandleFunc("/api/save", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := config.NewConfig()
	cfg.Seeds = []string{server.URL}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	scanReport, err := scanTarget(context.Background(), cfg, server.URL, true, logger)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if scanReport.Stats.TotalHTML != 2 {
		t.Errorf("expected 2 pages, got %+v", scanReport.Stats)
	}
	if scanReport.Stats.TotalBackend != 1 {
		t.Errorf("expected 1 endpoint, got %+v", scanReport.Stats)
	}
	if len(scanReport.Functions) != 1 || scanReport.Functions[0] != "validateForm" {
		t.Errorf("expected validateForm, got %v", scanReport.Functions)
	}
}

// TestOutputReport verifies format selection and file output.
func TestOutputReport(t *testing.T) {
	sample := model.NewScanReport("http://example.com/")
	sample.HTMLPages = []string{"http://example.com/"}
	sample.Stats.TotalHTML = 1

	t.Run("json report to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "report.json")
		cfg := config.NewConfig()
		cfg.JSONReport = true
		cfg.ReportFile = path

		if err := outputReport(cfg, sample); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("report is not valid JSON: %v", err)
		}
		if _, ok := decoded["html_pages"]; !ok {
			t.Error("expected html_pages in JSON report")
		}
	})

	t.Run("markdown report to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.md")
		cfg := config.NewConfig()
		cfg.MarkdownReport = true
		cfg.ReportFile = path

		if err := outputReport(cfg, sample); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Contains(data, []byte("# DeepCrawl Report")) {
			t.Error("expected markdown heading in report")
		}
	})

	t.Run("report file has restricted permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.txt")
		cfg := config.NewConfig()
		cfg.ReportFile = path

		if err := outputReport(cfg, sample); err != nil {
			t.Fatal(err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("expected 0600 permissions, got %o", perm)
		}
	})
}

// TestSaveScanReport verifies persistence wiring.
func TestSaveScanReport(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	t.Run("nil database is a no-op", func(t *testing.T) {
		t.Parallel()
		if err := saveScanReport(context.Background(), nil, model.NewScanReport("http://example.com"), logger); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("saves to an open database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		ctx := context.Background()
		if err := saveScanReport(ctx, db, model.NewScanReport("http://example.com"), logger); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		saved, err := db.GetLatestReport(ctx, "http://example.com")
		if err != nil {
			t.Fatal(err)
		}
		if saved == nil {
			t.Error("expected report to be saved")
		}
	})
}

// TestRunScanCmdValidation verifies early validation failures.
func TestRunScanCmdValidation(t *testing.T) {
	t.Run("no arguments", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetArgs([]string{"scan", "--no-save"})
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetErr(new(bytes.Buffer))

		if err := cmd.Execute(); err == nil {
			t.Error("expected an error with no seed URLs")
		}
	})

	t.Run("conflicting report formats", func(t *testing.T) {
		cmd := NewRootCmd()
		cmd.SetArgs([]string{"scan", "--json", "--markdown", "--no-save", "example.com"})
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetErr(new(bytes.Buffer))

		if err := cmd.Execute(); err == nil {
			t.Error("expected an error for conflicting formats")
		}
	})
}

// TestRunScanInvalidSeed verifies a malformed seed fails the invocation
// before any crawl starts, so the CLI exits non-zero.
func TestRunScanInvalidSeed(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		name string
		seed string
	}{
		{name: "no host", seed: "http://"},
		{name: "unsupported scheme", seed: "ftp://example.com/pub"},
		{name: "unparseable", seed: "http://exa mple.com/%zz"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.Seeds = []string{tt.seed}
			cfg.SaveToDB = false

			if err := runScan(context.Background(), cfg, true, logger); err == nil {
				t.Errorf("expected an error for seed %q", tt.seed)
			}
		})
	}
}
