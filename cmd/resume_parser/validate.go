package main

import (
	"fmt"
	"os"

	"github.com/jonathan/resume-parser/internal/schemas"
	schemafiles "github.com/jonathan/resume-parser/schemas"
	"github.com/spf13/cobra"
)

var validateSchema string

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a JSON file against a bundled schema",
	Long: `Checks FILE against one of the bundled JSON Schemas: "batch" for parse output (the
default) or "record" for a single record.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var schemaAliases = map[string]string{
	"batch":  schemafiles.BatchSchemaFile,
	"record": schemafiles.RecordSchemaFile,
}

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "batch", "Schema to validate against: batch or record")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	name, ok := schemaAliases[validateSchema]
	if !ok {
		return fmt.Errorf("unknown schema %q (want batch or record)", validateSchema)
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	if err := schemas.ValidateEmbedded(name, string(content)); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid against %s\n", args[0], name)
	return err
}
