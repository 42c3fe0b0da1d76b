package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS parse_batches (
	id UUID PRIMARY KEY,
	status TEXT NOT NULL,
	policy TEXT NOT NULL,
	total INTEGER NOT NULL,
	failed INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS parse_items (
	id UUID PRIMARY KEY,
	batch_id UUID NOT NULL REFERENCES parse_batches(id) ON DELETE CASCADE,
	item_index INTEGER NOT NULL,
	filename TEXT NOT NULL,
	sha256 TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL DEFAULT '',
	bytes INTEGER NOT NULL DEFAULT 0,
	pages INTEGER NOT NULL DEFAULT 0,
	fields JSONB,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (batch_id, item_index)
);
CREATE INDEX IF NOT EXISTS idx_parse_items_sha256 ON parse_items(sha256);
`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool
func (db *Postgres) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// Migrate creates the tables if they do not exist.
func (db *Postgres) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// CreateBatch inserts a batch row; a zero ID is replaced with a new one.
func (db *Postgres) CreateBatch(ctx context.Context, batch *Batch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.Status == "" {
		batch.Status = BatchStatusRunning
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO parse_batches (id, status, policy, total)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		batch.ID, batch.Status, batch.Policy, batch.Total,
	).Scan(&batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

// SaveItem inserts or replaces the item at (batch, index).
func (db *Postgres) SaveItem(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	var fieldsJSON []byte
	if item.Fields != nil {
		var err error
		fieldsJSON, err = json.Marshal(item.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO parse_items (id, batch_id, item_index, filename, sha256, format, bytes, pages, fields, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (batch_id, item_index) DO UPDATE SET
		   filename = $4, sha256 = $5, format = $6, bytes = $7, pages = $8, fields = $9, error_message = $10
		 RETURNING id, created_at`,
		item.ID, item.BatchID, item.Index, item.Filename, item.SHA256, item.Format,
		item.Bytes, item.Pages, fieldsJSON, item.Error,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// CompleteBatch records the final status of a batch.
func (db *Postgres) CompleteBatch(ctx context.Context, id uuid.UUID, status string, failed int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE parse_batches SET status = $1, failed = $2, completed_at = NOW() WHERE id = $3`,
		status, failed, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by ID
func (db *Postgres) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	var b Batch
	err := db.pool.QueryRow(ctx,
		`SELECT id, status, policy, total, failed, created_at, completed_at
		 FROM parse_batches WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Status, &b.Policy, &b.Total, &b.Failed, &b.CreatedAt, &b.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &b, nil
}

// ListItems retrieves the items of a batch in submission order.
func (db *Postgres) ListItems(ctx context.Context, batchID uuid.UUID) ([]Item, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, batch_id, item_index, filename, sha256, format, bytes, pages, fields, error_message, created_at
		 FROM parse_items WHERE batch_id = $1 ORDER BY item_index`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var fieldsJSON []byte
		var createdAt time.Time
		if err := rows.Scan(&item.ID, &item.BatchID, &item.Index, &item.Filename, &item.SHA256,
			&item.Format, &item.Bytes, &item.Pages, &fieldsJSON, &item.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.CreatedAt = createdAt
		if fieldsJSON != nil {
			if err := json.Unmarshal(fieldsJSON, &item.Fields); err != nil {
				return nil, fmt.Errorf("failed to decode item fields: %w", err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}
