// Package main provides the entry point for the DeepCrawl CLI.
//
// DeepCrawl is a web application discovery crawler for security testing.
// It maps a target's rendered pages, backend endpoints, and client-side
// JavaScript functions.
//
// Usage:
//
//	deepcrawl scan <url>
//	deepcrawl scan --depth 5 --json <url>
//
// See --help for all available options.
package main

// main is the entry point for DeepCrawl.
func main() {
	Execute()
}
