// Package cli provides terminal helpers shared by emailbattle commands.
//
// This package includes:
//   - Output formatting (YAML, JSON, msgpack, raw) with optional jq queries
//   - Console rendering of battle emails and results
//   - Small formatting helpers
//
// Example usage:
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    Query:  ".transcript[].subject",
//	})
package cli
