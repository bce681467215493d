// Package cli implements the diaryprint command-line interface.
//
// This package provides commands for exporting reports to paginated PDFs,
// inspecting page plans, serving the HTTP API and managing the local cache
// and export history. The CLI is built using cobra and logs through
// charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - export: Render a document or HTML report and write the PDF
//   - plan: Show where page breaks fall (table, JSON, DOT or SVG)
//   - preview: Browse the page plan interactively
//   - inspect: Read back page count, size and title of a PDF
//   - serve: Run the HTTP API
//   - history: List and prune recorded exports
//   - cache: Manage the artifact and plan cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// logs every pipeline stage and cache access. Loggers are passed through
// context.Context.
//
// # Example
//
//	import "github.com/matzehuels/diaryprint/internal/cli"
//
//	func main() {
//	    if err := cli.Execute(ctx); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"os"
)

// Execute runs the diaryprint CLI with ctx and returns an error if any
// command fails. Logging goes to stderr at info level unless --verbose is
// set.
func Execute(ctx context.Context) error {
	c := New(os.Stderr, LogInfo)
	return c.RootCommand().ExecuteContext(ctx)
}
