// Package model defines the core data structures shared across DeepCrawl.
// It contains the scan report and its supporting types, which form the
// stable JSON shape that external tooling depends on.
package model
