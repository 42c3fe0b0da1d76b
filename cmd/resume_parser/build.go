package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonathan/resume-parser/internal/config"
	"github.com/jonathan/resume-parser/internal/db"
	"github.com/jonathan/resume-parser/internal/entities"
	"github.com/jonathan/resume-parser/internal/llm"
	"github.com/jonathan/resume-parser/internal/normalize"
	"github.com/jonathan/resume-parser/internal/observability"
	"github.com/jonathan/resume-parser/internal/patterns"
	"github.com/jonathan/resume-parser/internal/pipeline"
	"github.com/jonathan/resume-parser/internal/resolve"
	"github.com/spf13/cobra"
)

// loadConfig layers configuration: the JSON file at path (optional), then the environment,
// then whatever override sets from flags, then the built-in defaults. The result is validated.
func loadConfig(path string, override func(*config.Config)) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		fileCfg, err := config.LoadConfig(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *fileCfg
	}

	envCfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	cfg = envCfg.MergeWithDefaults(cfg)

	if override != nil {
		override(&cfg)
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger builds the command logger; verbose forces debug level.
func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	return observability.NewLogger(cmd.ErrOrStderr(), level, cfg.LogFormat)
}

// openStore opens and migrates the database at url.
func openStore(ctx context.Context, url string, logger *slog.Logger) (db.Store, error) {
	store, err := db.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Debug("store.ready")
	return store, nil
}

// buildPipeline wires the stages described by cfg. The returned cleanup releases the LLM
// client, if one was created, and is always safe to call.
func buildPipeline(ctx context.Context, cfg config.Config, store db.Store, logger *slog.Logger) (*pipeline.Pipeline, func(), error) {
	cleanup := func() {}
	if logger == nil {
		logger = slog.Default()
	}

	capture, err := patterns.ParseCaptureMode(cfg.SectionCapture)
	if err != nil {
		return nil, cleanup, err
	}

	var recognizer entities.Recognizer = entities.NopRecognizer{}
	if cfg.APIKey != "" {
		tier, err := llm.ParseModelTier(cfg.ModelTier)
		if err != nil {
			return nil, cleanup, err
		}
		client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create LLM client: %w", err)
		}
		cleanup = func() {
			if err := client.Close(); err != nil {
				logger.Warn("llm.close_failed", "error", err)
			}
		}
		recognizer = entities.NewLLMRecognizer(client, tier, logger)
		logger.Debug("entities.llm", "model", client.GetModel(tier))
	} else {
		logger.Warn("entities.disabled", "reason", "no API key; fields come from patterns only")
	}

	p := pipeline.New(pipeline.Options{
		Normalizer: normalize.New(normalize.Options{
			MaxDocumentBytes: cfg.MaxDocumentBytes,
			SniffContent:     cfg.Sniff(),
			Logger:           logger,
		}),
		Extractor: entities.NewExtractor(recognizer, entities.Options{
			MaxChars: cfg.MaxEntityChars,
			Logger:   logger,
		}),
		Resolver:        resolve.New(patterns.NewLibrary(capture)),
		DocumentTimeout: cfg.DocumentTimeout.Std(),
		Workers:         cfg.Workers,
		Store:           store,
		Logger:          logger,
	})
	return p, cleanup, nil
}
