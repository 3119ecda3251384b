package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that no record exists for the requested key. It is a
// normal result, not a storage failure; callers check it with errors.Is.
var ErrNotFound = errors.New("record not found")

// AgentState is the latest durable snapshot of a conversation. At most one
// row exists per session ID; every checkpoint replaces the previous blob.
type AgentState struct {
	SessionID string
	StateBlob []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductEmbedding is a stored product vector used by ranking.
type ProductEmbedding struct {
	ProductID  string
	Vector     []float64
	Metadata   map[string]string
	Similarity float64 // Search score, populated by SearchSimilarProducts
}

// MigrationResult reports the outcome of dropping the legacy checkpoints
// table.
type MigrationResult struct {
	Dropped       bool
	RowsDiscarded int64
}

// Storage defines the interface for persistence
type Storage interface {
	// Agent state. UpsertState must be atomic under concurrent writers for
	// the same session ID: exactly one row remains and no conflict error is
	// surfaced. GetState returns ErrNotFound for unknown sessions.
	UpsertState(ctx context.Context, sessionID string, blob []byte) error
	GetState(ctx context.Context, sessionID string) (*AgentState, error)

	// DropLegacyCheckpoints removes the deprecated multi-row checkpoints
	// table wholesale and reports how many rows were discarded. Idempotent:
	// once the table is gone it reports Dropped=false and no error.
	DropLegacyCheckpoints(ctx context.Context) (*MigrationResult, error)

	// Configuration management
	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, error)

	// Product embeddings
	PutProductEmbedding(ctx context.Context, p *ProductEmbedding) error
	GetProductEmbedding(ctx context.Context, productID string) (*ProductEmbedding, error)
	SearchSimilarProducts(ctx context.Context, vector []float64, limit int) ([]*ProductEmbedding, error)

	Close() error
}
