// Package main provides the entry point for the DeepCrawl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for DeepCrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deepcrawl",
		Short: "Discovery crawler for web application security testing",
		Long: `DeepCrawl maps the attack surface of a web application.
Starting from a seed URL it crawls same-host links, classifies each
discovery as a rendered page or a backend endpoint, and scans reachable
JavaScript for function names worth a closer look.

Only scan applications you are authorized to test.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
