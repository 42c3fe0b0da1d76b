package db

import (
	"time"

	"github.com/google/uuid"
)

// Batch status values
const (
	BatchStatusRunning   = "running"
	BatchStatusCompleted = "completed"
	BatchStatusFailed    = "failed"
)

// Batch is one submitted collection of documents.
type Batch struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	Policy      string     `json:"policy"`
	Total       int        `json:"total"`
	Failed      int        `json:"failed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Item is the stored outcome for one document of a batch. Fields holds the rendered
// record; it is empty when Error is set.
type Item struct {
	ID        uuid.UUID         `json:"id"`
	BatchID   uuid.UUID         `json:"batch_id"`
	Index     int               `json:"index"`
	Filename  string            `json:"file"`
	SHA256    string            `json:"sha256,omitempty"`
	Format    string            `json:"format,omitempty"`
	Bytes     int               `json:"bytes"`
	Pages     int               `json:"pages,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Error     *string           `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// BatchWithItems is a batch and its items in submission order.
type BatchWithItems struct {
	Batch
	Items []Item `json:"items"`
}
