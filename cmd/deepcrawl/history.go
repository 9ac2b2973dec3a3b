package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PiCarODD/DeepCrawl/internal/config"
	"github.com/PiCarODD/DeepCrawl/internal/database"
	"github.com/PiCarODD/DeepCrawl/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "List and inspect saved scan results",
		Long: `History lists scans saved to the local database.

Without arguments it lists every saved scan. With a target URL it lists
only that target's scans. Use --show to print a full saved report.

Examples:
  # List all saved scans
  deepcrawl history

  # List scans of one target
  deepcrawl history http://shop.example.com

  # Print a saved report by its ID
  deepcrawl history --show 42

  # Print a saved report as JSON
  deepcrawl history --show 42 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("show", "s", 0,
		"Print the full saved report with the given scan ID")
	cmd.Flags().IntP("limit", "l", 0,
		"Maximum number of scans to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the report as JSON (with --show)")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no scan history found (%w)", err)
	}
	defer db.Close()

	showID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}

	if showID > 0 {
		asJSON, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		return showReport(cmd, db, showID, asJSON)
	}

	target := ""
	if len(args) == 1 {
		target = ensureScheme(args[0])
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	return listHistory(cmd, db, target, limit)
}

// listHistory prints scan metadata, newest first.
func listHistory(cmd *cobra.Command, db *database.ScanDB, target string, limit int) error {
	history, err := db.GetScanHistory(cmd.Context(), target)
	if err != nil {
		return err
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}

	if len(history) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved scans.")
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-6s %-40s %-20s %-8s %-10s %-10s\n",
		"ID", "TARGET", "DATE", "PAGES", "ENDPOINTS", "FUNCTIONS")
	for _, meta := range history {
		fmt.Fprintf(w, "%-6d %-40s %-20s %-8s %-10s %-10s\n",
			meta.ID,
			meta.Target,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.Itoa(meta.Summary["html_pages"]),
			strconv.Itoa(meta.Summary["backend_endpoints"]),
			strconv.Itoa(meta.Summary["functions"]),
		)
	}

	return nil
}

// showReport prints one saved report in full.
func showReport(cmd *cobra.Command, db *database.ScanDB, id int64, asJSON bool) error {
	saved, err := db.GetReportByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	if saved == nil {
		return fmt.Errorf("no saved scan with ID %d", id)
	}

	var writer report.Writer
	if asJSON {
		writer = report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint())
	} else {
		writer = report.NewSimpleWriter(cmd.OutOrStdout())
	}

	_, err = writer.Write(saved)
	return err
}
