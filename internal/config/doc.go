// Package config provides configuration structures and utilities for DeepCrawl.
// It defines the main options for crawling targets, concurrency and rate
// limits, and report generation preferences.
package config
