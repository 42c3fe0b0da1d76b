package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS parse_batches (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	policy TEXT NOT NULL,
	total INTEGER NOT NULL,
	failed INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	completed_at INTEGER
);
CREATE TABLE IF NOT EXISTS parse_items (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL REFERENCES parse_batches(id) ON DELETE CASCADE,
	item_index INTEGER NOT NULL,
	filename TEXT NOT NULL,
	sha256 TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL DEFAULT '',
	bytes INTEGER NOT NULL DEFAULT 0,
	pages INTEGER NOT NULL DEFAULT 0,
	fields TEXT,
	error_message TEXT,
	created_at INTEGER NOT NULL,
	UNIQUE (batch_id, item_index)
);
CREATE INDEX IF NOT EXISTS idx_parse_items_sha256 ON parse_items(sha256);
`

var sqlitePragmas = []string{
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=10000",
}

// SQLite is a Store backed by modernc.org/sqlite. Writes are serialized on one connection.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) a SQLite database at dsn.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases shared and avoids SQLITE_BUSY between workers
	db.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if they do not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// CreateBatch inserts a batch row; a zero ID is replaced with a new one.
func (s *SQLite) CreateBatch(ctx context.Context, batch *Batch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.Status == "" {
		batch.Status = BatchStatusRunning
	}
	batch.CreatedAt = s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parse_batches (id, status, policy, total, created_at) VALUES (?, ?, ?, ?, ?)`,
		batch.ID.String(), batch.Status, batch.Policy, batch.Total, batch.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

// SaveItem inserts or replaces the item at (batch, index).
func (s *SQLite) SaveItem(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = s.now().UTC()

	var fields sql.NullString
	if item.Fields != nil {
		b, err := json.Marshal(item.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
		fields = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parse_items (id, batch_id, item_index, filename, sha256, format, bytes, pages, fields, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (batch_id, item_index) DO UPDATE SET
		   filename = excluded.filename, sha256 = excluded.sha256, format = excluded.format,
		   bytes = excluded.bytes, pages = excluded.pages, fields = excluded.fields,
		   error_message = excluded.error_message`,
		item.ID.String(), item.BatchID.String(), item.Index, item.Filename, item.SHA256, item.Format,
		item.Bytes, item.Pages, fields, item.Error, item.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// CompleteBatch records the final status of a batch.
func (s *SQLite) CompleteBatch(ctx context.Context, id uuid.UUID, status string, failed int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE parse_batches SET status = ?, failed = ?, completed_at = ? WHERE id = ?`,
		status, failed, s.now().UTC().UnixMilli(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by ID
func (s *SQLite) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	var (
		b           Batch
		rawID       string
		createdAt   int64
		completedAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, policy, total, failed, created_at, completed_at FROM parse_batches WHERE id = ?`,
		id.String(),
	).Scan(&rawID, &b.Status, &b.Policy, &b.Total, &b.Failed, &createdAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	if b.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("failed to parse batch id: %w", err)
	}
	b.CreatedAt = time.UnixMilli(createdAt).UTC()
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64).UTC()
		b.CompletedAt = &t
	}
	return &b, nil
}

// ListItems retrieves the items of a batch in submission order.
func (s *SQLite) ListItems(ctx context.Context, batchID uuid.UUID) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, item_index, filename, sha256, format, bytes, pages, fields, error_message, created_at
		 FROM parse_items WHERE batch_id = ? ORDER BY item_index`,
		batchID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item           Item
			rawID, rawBID  string
			fields, errMsg sql.NullString
			createdAt      int64
		)
		if err := rows.Scan(&rawID, &rawBID, &item.Index, &item.Filename, &item.SHA256, &item.Format,
			&item.Bytes, &item.Pages, &fields, &errMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if item.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("failed to parse item id: %w", err)
		}
		if item.BatchID, err = uuid.Parse(rawBID); err != nil {
			return nil, fmt.Errorf("failed to parse batch id: %w", err)
		}
		if fields.Valid {
			if err := json.Unmarshal([]byte(fields.String), &item.Fields); err != nil {
				return nil, fmt.Errorf("failed to decode item fields: %w", err)
			}
		}
		if errMsg.Valid {
			msg := errMsg.String
			item.Error = &msg
		}
		item.CreatedAt = time.UnixMilli(createdAt).UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}
