package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; serializing connections avoids
	// SQLITE_BUSY under concurrent upserts within this process. Cross-process
	// writers are serialized by the busy timeout.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS agent_state (
			session_id TEXT PRIMARY KEY,
			state_blob BLOB NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS product_embeddings (
			product_id TEXT PRIMARY KEY,
			vector BLOB NOT NULL,
			metadata TEXT
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Agent State Implementation

func (s *SQLiteStore) UpsertState(ctx context.Context, sessionID string, blob []byte) error {
	now := time.Now().UTC()
	query := `INSERT INTO agent_state (session_id, state_blob, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET state_blob = excluded.state_blob, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, sessionID, blob, now, now); err != nil {
		return fmt.Errorf("failed to upsert agent state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetState(ctx context.Context, sessionID string) (*AgentState, error) {
	query := `SELECT session_id, state_blob, created_at, updated_at FROM agent_state WHERE session_id = ?`
	row := s.db.QueryRowContext(ctx, query, sessionID)

	var state AgentState
	if err := row.Scan(&state.SessionID, &state.StateBlob, &state.CreatedAt, &state.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read agent state: %w", err)
	}
	return &state, nil
}

// DropLegacyCheckpoints removes the deprecated checkpoints table left behind
// by the old checkpointer. Rows are counted before the drop for audit; no
// row-level recovery is attempted.
func (s *SQLiteStore) DropLegacyCheckpoints(ctx context.Context) (*MigrationResult, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'checkpoints'`).Scan(&name)
	if err == sql.ErrNoRows {
		return &MigrationResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoints`).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count legacy checkpoints: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DROP TABLE checkpoints`); err != nil {
		return nil, fmt.Errorf("failed to drop checkpoints table: %w", err)
	}

	return &MigrationResult{Dropped: true, RowsDiscarded: count}, nil
}

// Configuration Implementation

func (s *SQLiteStore) SetConfig(ctx context.Context, key, value string) error {
	query := `INSERT INTO configuration (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := s.db.ExecContext(ctx, query, key, value)
	return err
}

func (s *SQLiteStore) GetConfig(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM configuration WHERE key = ?`
	row := s.db.QueryRowContext(ctx, query, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// Product Embedding Implementation

func (s *SQLiteStore) PutProductEmbedding(ctx context.Context, p *ProductEmbedding) error {
	blob, err := encodeVector(p.Vector)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO product_embeddings (product_id, vector, metadata) VALUES (?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET vector = excluded.vector, metadata = excluded.metadata`
	_, err = s.db.ExecContext(ctx, query, p.ProductID, blob, string(metaJSON))
	return err
}

func (s *SQLiteStore) GetProductEmbedding(ctx context.Context, productID string) (*ProductEmbedding, error) {
	query := `SELECT product_id, vector, metadata FROM product_embeddings WHERE product_id = ?`
	row := s.db.QueryRowContext(ctx, query, productID)

	var p ProductEmbedding
	var blob []byte
	var metaJSON string
	if err := row.Scan(&p.ProductID, &blob, &metaJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, err
	}

	vec, err := decodeVector(blob)
	if err != nil {
		return nil, err
	}
	p.Vector = vec

	if err := json.Unmarshal([]byte(metaJSON), &p.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) SearchSimilarProducts(ctx context.Context, vector []float64, limit int) ([]*ProductEmbedding, error) {
	// Naive implementation: load all, compute cosine, sort.
	// OK for local catalogs (<10k products).

	rows, err := s.db.QueryContext(ctx, `SELECT product_id, vector, metadata FROM product_embeddings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scored []*ProductEmbedding
	for rows.Next() {
		var id string
		var blob []byte
		var metaJSON string
		if err := rows.Scan(&id, &blob, &metaJSON); err != nil {
			continue
		}

		vec, err := decodeVector(blob)
		if err != nil {
			continue
		}

		var meta map[string]string
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			continue
		}

		scored = append(scored, &ProductEmbedding{
			ProductID:  id,
			Vector:     vec,
			Metadata:   meta,
			Similarity: cosineSimilarity(vector, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	// A negative limit means no limit.
	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
