package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore is the production backend. It shares the SQLite backend's
// schema shape, with PostgreSQL types and placeholders.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS agent_state (
			session_id TEXT PRIMARY KEY,
			state_blob BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS product_embeddings (
			product_id TEXT PRIMARY KEY,
			vector BYTEA NOT NULL,
			metadata TEXT
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Agent State Implementation

func (s *PostgresStore) UpsertState(ctx context.Context, sessionID string, blob []byte) error {
	now := time.Now().UTC()
	query := `INSERT INTO agent_state (session_id, state_blob, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET state_blob = EXCLUDED.state_blob, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, sessionID, blob, now, now); err != nil {
		return fmt.Errorf("failed to upsert agent state: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetState(ctx context.Context, sessionID string) (*AgentState, error) {
	query := `SELECT session_id, state_blob, created_at, updated_at FROM agent_state WHERE session_id = $1`
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

// DropLegacyCheckpoints removes the deprecated checkpoints table. CASCADE
// also clears the dependent objects the old checkpointer created.
func (s *PostgresStore) DropLegacyCheckpoints(ctx context.Context) (*MigrationResult, error) {
	var regclass sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT to_regclass('public.checkpoints')`).Scan(&regclass); err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if !regclass.Valid {
		return &MigrationResult{}, nil
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoints`).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count legacy checkpoints: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS checkpoints CASCADE`); err != nil {
		return nil, fmt.Errorf("failed to drop checkpoints table: %w", err)
	}

	return &MigrationResult{Dropped: true, RowsDiscarded: count}, nil
}

// Configuration Implementation

func (s *PostgresStore) SetConfig(ctx context.Context, key, value string) error {
	query := `INSERT INTO configuration (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	_, err := s.db.ExecContext(ctx, query, key, value)
	return err
}

func (s *PostgresStore) GetConfig(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM configuration WHERE key = $1`
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

func (s *PostgresStore) PutProductEmbedding(ctx context.Context, p *ProductEmbedding) error {
	blob, err := encodeVector(p.Vector)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO product_embeddings (product_id, vector, metadata) VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE SET vector = EXCLUDED.vector, metadata = EXCLUDED.metadata`
	_, err = s.db.ExecContext(ctx, query, p.ProductID, blob, string(metaJSON))
	return err
}

func (s *PostgresStore) GetProductEmbedding(ctx context.Context, productID string) (*ProductEmbedding, error) {
	query := `SELECT product_id, vector, metadata FROM product_embeddings WHERE product_id = $1`
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

func (s *PostgresStore) SearchSimilarProducts(ctx context.Context, vector []float64, limit int) ([]*ProductEmbedding, error) {
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
