package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/PiCarODD/DeepCrawl/internal/database"
	"github.com/PiCarODD/DeepCrawl/internal/model"
)

// seedHistoryDB creates a database with one saved scan and returns its dir.
func seedHistoryDB(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	report := model.NewScanReport("http://shop.example.com")
	report.HTMLPages = []string{"http://shop.example.com/"}
	report.BackendEndpoints = []string{"http://shop.example.com/api/save"}
	report.Stats = model.Stats{TotalHTML: 1, TotalBackend: 1, MaxDepth: 3}

	if _, err := db.SaveReport(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	return dir
}

// TestNewHistoryCmd verifies the history command definition.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	if !strings.HasPrefix(cmd.Use, "history") {
		t.Errorf("expected use to start with 'history', got %q", cmd.Use)
	}

	for _, name := range []string{"show", "json", "db-dir", "limit"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %q flag", name)
		}
	}
}

// TestRunHistoryCmd verifies listing and showing saved scans.
func TestRunHistoryCmd(t *testing.T) {
	t.Run("lists saved scans", func(t *testing.T) {
		dir := seedHistoryDB(t)

		cmd := NewHistoryCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--db-dir", dir})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "http://shop.example.com") {
			t.Errorf("expected target in listing:\n%s", out)
		}
		if !strings.Contains(out, "TARGET") {
			t.Errorf("expected table header:\n%s", out)
		}
	})

	t.Run("limits the listing", func(t *testing.T) {
		dir := seedHistoryDB(t)

		db, err := database.Open(dir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		second := model.NewScanReport("http://blog.example.com")
		second.HTMLPages = []string{"http://blog.example.com/"}
		if _, err := db.SaveReport(context.Background(), second); err != nil {
			t.Fatal(err)
		}
		db.Close()

		cmd := NewHistoryCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--db-dir", dir, "--limit", "1"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "http://blog.example.com") {
			t.Errorf("expected the newest scan in the limited listing:\n%s", out)
		}
		if strings.Contains(out, "http://shop.example.com") {
			t.Errorf("expected the older scan to be cut by the limit:\n%s", out)
		}
	})

	t.Run("filters by target", func(t *testing.T) {
		dir := seedHistoryDB(t)

		cmd := NewHistoryCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--db-dir", dir, "shop.example.com"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "http://shop.example.com") {
			t.Errorf("expected filtered listing:\n%s", buf.String())
		}
	})

	t.Run("unknown target lists nothing", func(t *testing.T) {
		dir := seedHistoryDB(t)

		cmd := NewHistoryCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--db-dir", dir, "never-scanned.example.com"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "No saved scans") {
			t.Errorf("expected empty-history message:\n%s", buf.String())
		}
	})

	t.Run("shows a saved report", func(t *testing.T) {
		dir := seedHistoryDB(t)

		cmd := NewHistoryCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--db-dir", dir, "--show", "1"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "DEEPCRAWL REPORT") {
			t.Errorf("expected full report:\n%s", out)
		}
		if !strings.Contains(out, "http://shop.example.com/api/save") {
			t.Errorf("expected endpoint in report:\n%s", out)
		}
	})

	t.Run("shows a saved report as JSON", func(t *testing.T) {
		dir := seedHistoryDB(t)

		cmd := NewHistoryCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--db-dir", dir, "--show", "1", "--json"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), `"backend_endpoints"`) {
			t.Errorf("expected JSON report:\n%s", buf.String())
		}
	})

	t.Run("unknown scan id errors", func(t *testing.T) {
		dir := seedHistoryDB(t)

		cmd := NewHistoryCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{"--db-dir", dir, "--show", "999"})

		if err := cmd.Execute(); err == nil {
			t.Error("expected an error for an unknown scan ID")
		}
	})

	t.Run("missing database errors", func(t *testing.T) {
		cmd := NewHistoryCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{"--db-dir", t.TempDir()})

		if err := cmd.Execute(); err == nil {
			t.Error("expected an error when no database exists")
		}
	})
}
