// Package cli provides common utilities for the amcompute command-line
// tools.
//
// This package includes:
//   - Logger construction (text or JSON slog handlers)
//   - Output formatting (YAML, JSON, summary table)
//   - Human readable durations and counts
//
// Example usage:
//
//	log, err := cli.NewLogger(os.Stderr, cli.LogText, verbose)
//
//	// Print run statistics
//	cli.Output(stats, cli.OutputOptions{Format: cli.FormatTable})
package cli
