package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/resume-parser/internal/config"
	"github.com/jonathan/resume-parser/internal/db"
	"github.com/jonathan/resume-parser/internal/export"
	"github.com/jonathan/resume-parser/internal/observability"
	"github.com/jonathan/resume-parser/internal/pipeline"
	"github.com/jonathan/resume-parser/internal/schemas"
	"github.com/jonathan/resume-parser/internal/types"
	schemafiles "github.com/jonathan/resume-parser/schemas"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Parse résumé files into structured records",
	Long: `Parses each FILE (PDF, DOCX or plain text) concurrently and writes the batch as JSON.

Configuration can be loaded from a JSON file using --config. Environment variables override
the file, and command-line flags override both.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

var (
	parseConfigPath     string
	parseOut            string
	parseXLSX           string
	parseDatabaseURL    string
	parsePolicy         string
	parseWorkers        int
	parseSectionCapture string
	parseValidate       bool
	parseVerbose        bool
	parseAPIKey         string
)

func init() {
	parseCmd.Flags().StringVar(&parseConfigPath, "config", "", "Path to config.json file (values can be overridden by env and flags)")
	parseCmd.Flags().StringVarP(&parseOut, "out", "o", "", "Write the JSON result to this file instead of stdout")
	parseCmd.Flags().StringVar(&parseXLSX, "xlsx", "", "Also export the batch to this XLSX file")
	parseCmd.Flags().StringVar(&parseDatabaseURL, "db-url", "", "Persist the batch (postgres://, sqlite:// or file:; defaults to DATABASE_URL)")
	parseCmd.Flags().StringVar(&parsePolicy, "policy", "", "Batch failure policy: isolate or abort")
	parseCmd.Flags().IntVarP(&parseWorkers, "workers", "w", 0, "Concurrent documents (default: number of CPUs)")
	parseCmd.Flags().StringVar(&parseSectionCapture, "section-capture", "", "Section body capture: line or section")
	parseCmd.Flags().BoolVar(&parseValidate, "validate", true, "Check the JSON result against its schema before writing it (defaults to VALIDATE_OUTPUT)")
	parseCmd.Flags().BoolVarP(&parseVerbose, "verbose", "v", false, "Print a summary of every record")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	parseCmd.Flags().StringVar(&parseAPIKey, "api-key", "", "Gemini API key for entity recognition (defaults to GEMINI_API_KEY)")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(parseConfigPath, func(c *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("db-url") {
			c.DatabaseURL = parseDatabaseURL
		}
		if flags.Changed("policy") {
			c.BatchPolicy = parsePolicy
		}
		if flags.Changed("workers") {
			c.Workers = parseWorkers
		}
		if flags.Changed("section-capture") {
			c.SectionCapture = parseSectionCapture
		}
		if flags.Changed("verbose") {
			c.Verbose = parseVerbose
		}
		if flags.Changed("api-key") {
			c.APIKey = parseAPIKey
		}
		if flags.Changed("validate") {
			c.ValidateOutput = &parseValidate
		}
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	policy, err := pipeline.ParsePolicy(cfg.BatchPolicy)
	if err != nil {
		return err
	}

	docs, err := readDocuments(args)
	if err != nil {
		return err
	}

	var store db.Store
	if cfg.DatabaseURL != "" {
		store, err = openStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	p, cleanup, err := buildPipeline(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := p.ParseBatch(ctx, docs, pipeline.BatchOptions{Policy: policy})
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	if cfg.Verbose {
		printer := observability.NewPrinter(cmd.ErrOrStderr())
		for _, it := range res.Items {
			if it.Err == nil {
				printer.PrintRecord(it.Filename, it.Info, it.Record)
			}
		}
		printer.PrintBatch(res)
	}

	out := pipeline.NewOutput(res)
	if cfg.ValidatesOutput() {
		if err := schemas.ValidateValue(schemafiles.BatchSchemaFile, out); err != nil {
			return fmt.Errorf("result failed schema validation: %w", err)
		}
	}

	if err := writeJSON(cmd, parseOut, out); err != nil {
		return err
	}

	if parseXLSX != "" {
		data, err := export.NewService(logger).XLSX(export.RowsFromBatch(res))
		if err != nil {
			return fmt.Errorf("failed to export xlsx: %w", err)
		}
		if err := os.WriteFile(parseXLSX, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", parseXLSX, err)
		}
		logger.Info("export.xlsx.written", "path", parseXLSX, "rows", len(res.Items))
	}
	return nil
}

// readDocuments loads every path. The media type is left empty so the extension, or the
// content when sniffing is on, decides the format.
func readDocuments(paths []string) ([]types.Document, error) {
	docs := make([]types.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, types.Document{Filename: filepath.Base(path), Data: data})
	}
	return docs, nil
}

// writeJSON writes v indented to path, or to the command's stdout when path is empty.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
