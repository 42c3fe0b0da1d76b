// Package db persists parsed batches and their records in PostgreSQL or SQLite.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Store persists batches and items. Get methods return nil, nil when the row does not exist.
type Store interface {
	Migrate(ctx context.Context) error
	CreateBatch(ctx context.Context, batch *Batch) error
	SaveItem(ctx context.Context, item *Item) error
	CompleteBatch(ctx context.Context, id uuid.UUID, status string, failed int) error
	GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error)
	ListItems(ctx context.Context, batchID uuid.UUID) ([]Item, error)
	Close() error
}

// Open picks a backend from the URL scheme: postgres:// and postgresql:// use pgx, sqlite://
// and file: use SQLite. The literal ":memory:" opens a private in-memory SQLite database.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return Connect(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))
	case strings.HasPrefix(databaseURL, "file:"), databaseURL == ":memory:":
		return OpenSQLite(ctx, databaseURL)
	case databaseURL == "":
		return nil, fmt.Errorf("database URL is empty")
	default:
		return nil, fmt.Errorf("unsupported database URL scheme: %q", redact(databaseURL))
	}
}

// GetBatchWithItems loads a batch and its items; nil, nil when the batch does not exist.
func GetBatchWithItems(ctx context.Context, s Store, id uuid.UUID) (*BatchWithItems, error) {
	batch, err := s.GetBatch(ctx, id)
	if err != nil || batch == nil {
		return nil, err
	}
	items, err := s.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BatchWithItems{Batch: *batch, Items: items}, nil
}

// redact drops everything after the scheme so credentials never reach logs.
func redact(u string) string {
	if scheme, _, ok := strings.Cut(u, "://"); ok {
		return scheme + "://…"
	}
	if len(u) > 12 {
		return u[:12] + "…"
	}
	return u
}
