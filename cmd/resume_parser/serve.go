package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/resume-parser/internal/config"
	"github.com/jonathan/resume-parser/internal/db"
	"github.com/jonathan/resume-parser/internal/pipeline"
	"github.com/jonathan/resume-parser/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	servePort       int
	serveConfigPath string
	serveValidate   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that parses uploaded résumés.

Batch history and XLSX export are available when DATABASE_URL is set. Bearer-token auth is
enabled when JWT_SECRET is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Port to listen on (defaults to PORT)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().BoolVar(&serveValidate, "validate", true, "Check every response body against its schema (defaults to VALIDATE_OUTPUT)")
	rootCmd.AddCommand(serveCmd)
}

// serveOverrides applies only the flags the user set explicitly.
func serveOverrides(flags *pflag.FlagSet) func(*config.Config) {
	return func(c *config.Config) {
		if flags.Changed("port") {
			c.Port = servePort
		}
		if flags.Changed("validate") {
			c.ValidateOutput = &serveValidate
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(serveConfigPath, serveOverrides(cmd.Flags()))
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := pipeline.ParsePolicy(cfg.BatchPolicy)
	if err != nil {
		return err
	}

	jwtCfg, err := config.OptionalJWTConfig()
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

	srv, err := server.New(server.Config{
		Port:           cfg.Port,
		Pipeline:       p,
		Store:          store,
		Policy:         policy,
		MaxUploadBytes: cfg.MaxUploadBytes,
		ValidateOutput: cfg.ValidatesOutput(),
		JWT:            jwtCfg,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
