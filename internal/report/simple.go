package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PiCarODD/DeepCrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Colored streaming output is the LiveReporter's job
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	report.Sort()

	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSection(&sb, "HTML PAGES", report.HTMLPages)
	w.writeSection(&sb, "BACKEND ENDPOINTS", report.BackendEndpoints)
	w.writeSection(&sb, "JAVASCRIPT FUNCTIONS", report.Functions)
	w.writeFailures(&sb, report)
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         DEEPCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Target:         %s\n", report.Target))
	sb.WriteString(fmt.Sprintf("Scan Date:      %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", report.Duration.Round(10*time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Crawl Depth:    %d\n", report.Stats.MaxDepth))
	sb.WriteString(fmt.Sprintf("Pages Crawled:  %d\n", report.Stats.PagesCrawled))

	if report.Interrupted {
		sb.WriteString("Status:         INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeSection writes one discovery list under its own heading.
func (w *SimpleWriter) writeSection(sb *strings.Builder, title string, entries []string) {
	if len(entries) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s (%d)\n", title, len(entries)))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(entries) == 0 {
		sb.WriteString("  None discovered\n")
	} else {
		for _, entry := range entries {
			sb.WriteString(fmt.Sprintf("  [+] %s\n", entry))
		}
	}
	sb.WriteString("\n")
}

// writeFailures writes the fetch-failure diagnostics section.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Failures) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("FETCH FAILURES (%d)\n", len(report.Failures)))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Failures) == 0 {
		sb.WriteString("  None\n")
	} else {
		for _, f := range report.Failures {
			if f.Status != 0 {
				sb.WriteString(fmt.Sprintf("  [!] %s (%s %d)\n", f.URL, f.Kind, f.Status))
			} else {
				sb.WriteString(fmt.Sprintf("  [!] %s (%s)\n", f.URL, f.Kind))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Total discovered: %d (%d pages, %d endpoints, %d functions)\n",
		report.TotalDiscovered(),
		report.Stats.TotalHTML,
		report.Stats.TotalBackend,
		report.Stats.TotalFunctions,
	))
	sb.WriteString("https://github.com/PiCarODD/DeepCrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
