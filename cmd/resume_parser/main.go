// Package main provides the resume_parser command line: batch parsing of local files, the
// HTTP API server, and database and token maintenance.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "resume_parser",
	Short: "Extract structured fields from PDF, DOCX and plain-text résumés",
	Long: `resume_parser turns résumé documents into fixed twelve-field records.

Each document is normalized to text, run through entity recognition, and resolved against a
deterministic pattern library. Results can be written as JSON, exported to XLSX, persisted to
PostgreSQL or SQLite, or served over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
