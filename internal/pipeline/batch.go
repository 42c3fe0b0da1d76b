package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-parser/internal/db"
	"github.com/jonathan/resume-parser/internal/types"
)

// ErrEmptyBatch is returned when a batch has no documents.
var ErrEmptyBatch = errors.New("batch contains no documents")

// Policy decides what one failing document does to the rest of its batch.
type Policy string

const (
	// PolicyIsolate records the failure on the item and keeps going.
	PolicyIsolate Policy = "isolate"
	// PolicyAbort cancels the batch on the first failure and returns no result.
	PolicyAbort Policy = "abort"
)

// ParsePolicy parses "isolate" or "abort"; empty means PolicyIsolate.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyIsolate:
		return PolicyIsolate, nil
	case PolicyAbort:
		return PolicyAbort, nil
	}
	return "", fmt.Errorf("invalid batch policy %q (want %q or %q)", s, PolicyIsolate, PolicyAbort)
}

// Progress status values
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ProgressEvent reports one finished document.
type ProgressEvent struct {
	BatchID  string `json:"batch_id"`
	Index    int    `json:"index"`
	Filename string `json:"file"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
}

// ProgressCallback is called once per finished document. Calls are serialized.
type ProgressCallback func(event ProgressEvent)

// BatchOptions configures one ParseBatch call.
type BatchOptions struct {
	Policy     Policy
	OnProgress ProgressCallback
	// Workers overrides the pipeline's worker bound when positive.
	Workers int
}

// Item is the outcome for the document at Index. Exactly one of Record and Err is set.
type Item struct {
	Index    int
	Filename string
	Record   *types.Record
	Info     types.DocumentInfo
	Err      error
}

// BatchResult holds one item per submitted document, in submission order.
type BatchResult struct {
	ID     uuid.UUID
	Policy Policy
	Items  []Item
}

// Failed counts items that carry an error.
func (b *BatchResult) Failed() int {
	n := 0
	for _, it := range b.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// ParseBatch parses docs concurrently. Items are stored by index, so the result order is
// the submission order whatever order the workers finish in.
func (p *Pipeline) ParseBatch(ctx context.Context, docs []types.Document, opts BatchOptions) (*BatchResult, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyBatch
	}
	if opts.Policy == "" {
		opts.Policy = PolicyIsolate
	}
	workers := p.workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	result := &BatchResult{
		ID:     uuid.New(),
		Policy: opts.Policy,
		Items:  make([]Item, len(docs)),
	}
	logger := p.logger.With("batch", result.ID.String())
	persist := p.beginBatch(ctx, result, len(docs))

	start := time.Now()
	logger.Info("pipeline.batch.start", "documents", len(docs), "workers", workers, "policy", opts.Policy)

	var (
		progressMu sync.Mutex
		done       int
	)
	report := func(it Item) {
		if opts.OnProgress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		ev := ProgressEvent{
			BatchID:  result.ID.String(),
			Index:    it.Index,
			Filename: it.Filename,
			Status:   StatusOK,
			Done:     done,
			Total:    len(docs),
		}
		if it.Err != nil {
			ev.Status = StatusFailed
			ev.Error = it.Err.Error()
		}
		opts.OnProgress(ev)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, doc := range docs {
		if opts.Policy == PolicyAbort && gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			docStart := time.Now()
			rec, info, err := p.Parse(gCtx, doc)
			it := Item{Index: i, Filename: doc.Filename, Record: rec, Info: info, Err: err}
			result.Items[i] = it

			if err != nil {
				logger.Warn("pipeline.document.failed", "index", i, "file", doc.Filename, "error", err)
			} else {
				logger.Info("pipeline.document.ok",
					"index", i,
					"file", doc.Filename,
					"format", info.Format,
					"found", rec.FoundCount(),
					"duration_ms", time.Since(docStart).Milliseconds(),
				)
			}
			if persist {
				p.saveItem(ctx, result.ID, it)
			}
			report(it)

			if err != nil && opts.Policy == PolicyAbort {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("batch cancelled: %w", ctx.Err())
	}

	status := db.BatchStatusCompleted
	if err != nil {
		status = db.BatchStatusFailed
	}
	if persist {
		p.completeBatch(ctx, result, status)
	}

	logger.Info("pipeline.batch.done",
		"status", status,
		"failed", result.Failed(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// beginBatch records the batch; persistence problems are logged and never fail parsing.
func (p *Pipeline) beginBatch(ctx context.Context, result *BatchResult, total int) bool {
	if p.store == nil {
		return false
	}
	row := &db.Batch{ID: result.ID, Policy: string(result.Policy), Total: total}
	if err := p.store.CreateBatch(ctx, row); err != nil {
		p.logger.Warn("pipeline.store.batch_failed", "batch", result.ID.String(), "error", err)
		return false
	}
	return true
}

func (p *Pipeline) saveItem(ctx context.Context, batchID uuid.UUID, it Item) {
	row := ItemRow(batchID, it)
	if err := p.store.SaveItem(context.WithoutCancel(ctx), row); err != nil {
		p.logger.Warn("pipeline.store.item_failed", "batch", batchID.String(), "index", it.Index, "error", err)
	}
}

func (p *Pipeline) completeBatch(ctx context.Context, result *BatchResult, status string) {
	if err := p.store.CompleteBatch(context.WithoutCancel(ctx), result.ID, status, result.Failed()); err != nil {
		p.logger.Warn("pipeline.store.complete_failed", "batch", result.ID.String(), "error", err)
	}
}

// ItemRow converts a batch item to its stored form.
func ItemRow(batchID uuid.UUID, it Item) *db.Item {
	row := &db.Item{
		BatchID:  batchID,
		Index:    it.Index,
		Filename: it.Filename,
		SHA256:   it.Info.SHA256,
		Format:   string(it.Info.Format),
		Bytes:    it.Info.Bytes,
		Pages:    it.Info.Pages,
	}
	if it.Err != nil {
		msg := it.Err.Error()
		row.Error = &msg
		return row
	}
	row.Fields = it.Record.Flat()
	return row
}
