// Package pipeline runs documents through normalization, entity extraction, and field
// resolution, one at a time or as a concurrent batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/jonathan/resume-parser/internal/db"
	"github.com/jonathan/resume-parser/internal/entities"
	"github.com/jonathan/resume-parser/internal/normalize"
	"github.com/jonathan/resume-parser/internal/resolve"
	"github.com/jonathan/resume-parser/internal/types"
)

// DefaultDocumentTimeout bounds the work spent on one document.
const DefaultDocumentTimeout = 60 * time.Second

// Options wires the pipeline stages. Nil stages get their defaults: a normalizer with
// default limits, an extractor that recognizes nothing, and a line-capture resolver.
type Options struct {
	Normalizer      *normalize.Normalizer
	Extractor       *entities.Extractor
	Resolver        *resolve.Resolver
	DocumentTimeout time.Duration
	Workers         int
	// Store persists batches when set.
	Store  db.Store
	Logger *slog.Logger
}

// Pipeline is safe for concurrent use; it keeps no per-document state.
type Pipeline struct {
	normalizer *normalize.Normalizer
	extractor  *entities.Extractor
	resolver   *resolve.Resolver
	timeout    time.Duration
	workers    int
	store      db.Store
	logger     *slog.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(normalize.Options{Logger: opts.Logger})
	}
	if opts.Extractor == nil {
		opts.Extractor = entities.NewExtractor(nil, entities.Options{Logger: opts.Logger})
	}
	if opts.Resolver == nil {
		opts.Resolver = resolve.New(nil)
	}
	if opts.DocumentTimeout <= 0 {
		opts.DocumentTimeout = DefaultDocumentTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Pipeline{
		normalizer: opts.Normalizer,
		extractor:  opts.Extractor,
		resolver:   opts.Resolver,
		timeout:    opts.DocumentTimeout,
		workers:    opts.Workers,
		store:      opts.Store,
		logger:     opts.Logger,
	}
}

// Parse turns one document into a record. Missing fields are never an error; errors are
// *types.UnsupportedFormatError or *types.ExtractionError, or the caller's context error.
func (p *Pipeline) Parse(ctx context.Context, doc types.Document) (*types.Record, types.DocumentInfo, error) {
	docCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, info, err := p.normalizer.Normalize(docCtx, doc)
	if err != nil {
		return nil, info, p.classify(ctx, docCtx, doc, err)
	}

	ents, err := p.extractor.Extract(docCtx, text)
	if err == nil {
		err = docCtx.Err()
	}
	if err != nil {
		return nil, info, p.classify(ctx, docCtx, doc, err)
	}

	return p.resolver.Resolve(ents, text), info, nil
}

// classify maps stage errors onto the error taxonomy. A per-document deadline becomes a
// timeout ExtractionError; cancellation by the caller is returned as is.
func (p *Pipeline) classify(parent, docCtx context.Context, doc types.Document, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("parse %s: %w", doc.Filename, parent.Err())
	}
	if errors.Is(docCtx.Err(), context.DeadlineExceeded) {
		return &types.ExtractionError{
			Stage:    types.StageTimeout,
			Filename: doc.Filename,
			Message:  fmt.Sprintf("document exceeded %s", p.timeout),
			Cause:    context.DeadlineExceeded,
		}
	}

	var extErr *types.ExtractionError
	if errors.As(err, &extErr) && extErr.Filename == "" {
		extErr.Filename = doc.Filename
	}
	return err
}
