package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/PiCarODD/DeepCrawl/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	report.Sort()

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeDiscoveries(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("DeepCrawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.Target + "`"},
			{"Scan Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(10 * time.Millisecond).String()},
			{"Crawl Depth", strconv.Itoa(report.Stats.MaxDepth)},
			{"Pages Crawled", strconv.Itoa(report.Stats.PagesCrawled)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, report)
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.ScanReport) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

// writeAlert writes an appropriate alert based on what was discovered.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport) {
	switch {
	case report.Stats.TotalBackend > 0:
		md.Importantf(
			"%d backend endpoint(s) discovered. Review each for authentication and input validation.",
			report.Stats.TotalBackend,
		)
	case report.TotalDiscovered() > 0:
		md.Note("No backend endpoints discovered; only rendered pages and client-side functions.")
	default:
		md.Tip("Nothing discovered. Check that the target is reachable and the crawl depth is sufficient.")
	}
	md.PlainText("")
}

// writeDiscoveries writes the three discovery lists.
func (w *MarkdownWriter) writeDiscoveries(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Count"},
		Rows: [][]string{
			{"HTML Pages", strconv.Itoa(report.Stats.TotalHTML)},
			{"Backend Endpoints", strconv.Itoa(report.Stats.TotalBackend)},
			{"JavaScript Functions", strconv.Itoa(report.Stats.TotalFunctions)},
			{"**Total**", "**" + strconv.Itoa(report.TotalDiscovered()) + "**"},
		},
	})
	md.PlainText("")

	w.writeList(md, "HTML Pages", report.HTMLPages, "No pages discovered.")
	w.writeList(md, "Backend Endpoints", report.BackendEndpoints, "No backend endpoints discovered.")
	w.writeList(md, "JavaScript Functions", report.Functions, "No functions discovered.")
}

// writeList writes one discovery list as a bullet list under its heading.
func (w *MarkdownWriter) writeList(md *markdown.Markdown, title string, entries []string, empty string) {
	md.H2(title)
	md.PlainText("")

	if len(entries) == 0 {
		md.PlainText(empty)
		md.PlainText("")
		return
	}

	items := make([]string, len(entries))
	for i, entry := range entries {
		items[i] = "`" + entry + "`"
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeFailures writes the fetch failure diagnostics table.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.ScanReport) {
	if len(report.Failures) == 0 {
		return
	}

	md.H2("Fetch Failures")
	md.PlainText("")

	rows := make([][]string, len(report.Failures))
	for i, f := range report.Failures {
		status := "-"
		if f.Status != 0 {
			status = strconv.Itoa(f.Status)
		}
		rows[i] = []string{"`" + f.URL + "`", f.Kind, status}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [DeepCrawl](https://github.com/PiCarODD/DeepCrawl)*")
}
