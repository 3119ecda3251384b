package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "aura.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("AgentState", func(t *testing.T) {
		if err := s.UpsertState(ctx, "s1", []byte("stateA")); err != nil {
			t.Fatalf("UpsertState failed: %v", err)
		}

		got, err := s.GetState(ctx, "s1")
		if err != nil {
			t.Fatalf("GetState failed: %v", err)
		}
		if string(got.StateBlob) != "stateA" {
			t.Errorf("Expected 'stateA', got '%s'", got.StateBlob)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("Expected timestamps to be set")
		}

		// Second write for the same session replaces, never duplicates.
		if err := s.UpsertState(ctx, "s1", []byte("stateB")); err != nil {
			t.Fatalf("UpsertState (replace) failed: %v", err)
		}

		updated, err := s.GetState(ctx, "s1")
		if err != nil {
			t.Fatalf("GetState after replace failed: %v", err)
		}
		if string(updated.StateBlob) != "stateB" {
			t.Errorf("Expected 'stateB', got '%s'", updated.StateBlob)
		}
		if updated.UpdatedAt.Before(got.UpdatedAt) {
			t.Error("Expected updated_at to advance")
		}
		if !updated.CreatedAt.Equal(got.CreatedAt) {
			t.Error("Expected created_at to be preserved on replace")
		}

		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM agent_state WHERE session_id = 's1'`).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("Expected exactly 1 row, got %d", count)
		}
	})

	t.Run("GetStateNotFound", func(t *testing.T) {
		_, err := s.GetState(ctx, "never-started")
		if err == nil {
			t.Fatal("Expected error for unknown session")
		}
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Config", func(t *testing.T) {
		if err := s.SetConfig(ctx, "k1", "v1"); err != nil {
			t.Fatalf("SetConfig failed: %v", err)
		}
		if err := s.SetConfig(ctx, "k1", "v2"); err != nil {
			t.Fatalf("SetConfig overwrite failed: %v", err)
		}

		val, err := s.GetConfig(ctx, "k1")
		if err != nil {
			t.Fatalf("GetConfig failed: %v", err)
		}
		if val != "v2" {
			t.Errorf("Expected 'v2', got '%s'", val)
		}

		val2, _ := s.GetConfig(ctx, "unknown")
		if val2 != "" {
			t.Errorf("Expected empty string for unknown config, got '%s'", val2)
		}
	})

	t.Run("ProductEmbeddings", func(t *testing.T) {
		vec := make([]float64, 768)
		for i := range vec {
			vec[i] = float64(i) / 768.0
		}
		p := &ProductEmbedding{
			ProductID: "p1",
			Vector:    vec,
			Metadata:  map[string]string{"category": "dress"},
		}

		if err := s.PutProductEmbedding(ctx, p); err != nil {
			t.Fatalf("PutProductEmbedding failed: %v", err)
		}

		got, err := s.GetProductEmbedding(ctx, "p1")
		if err != nil {
			t.Fatalf("GetProductEmbedding failed: %v", err)
		}
		if len(got.Vector) != 768 {
			t.Fatalf("Expected 768 elements, got %d", len(got.Vector))
		}
		for i := range vec {
			if got.Vector[i] != vec[i] {
				t.Fatalf("Vector mismatch at %d", i)
			}
		}
		if got.Metadata["category"] != "dress" {
			t.Errorf("Expected metadata 'dress', got '%s'", got.Metadata["category"])
		}

		if _, err := s.GetProductEmbedding(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown product, got %v", err)
		}
	})
}

func TestSearchSimilarProducts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Three products: two near the query direction, one orthogonal-ish.
	mkVec := func(fill float64, spike int) []float64 {
		vec := make([]float64, 768)
		for i := range vec {
			vec[i] = fill
		}
		vec[spike] = 1.0
		return vec
	}

	products := []*ProductEmbedding{
		{ProductID: "close-1", Vector: mkVec(0.5, 0)},
		{ProductID: "close-2", Vector: mkVec(0.48, 1)},
		{ProductID: "far", Vector: mkVec(0.0, 700)},
	}
	for _, p := range products {
		if err := s.PutProductEmbedding(ctx, p); err != nil {
			t.Fatalf("PutProductEmbedding failed: %v", err)
		}
	}

	query := mkVec(0.5, 2)
	results, err := s.SearchSimilarProducts(ctx, query, 2)
	if err != nil {
		t.Fatalf("SearchSimilarProducts failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.ProductID == "far" {
			t.Error("Orthogonal product should be ranked out")
		}
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("Results not sorted by similarity")
	}
}

func TestSearchSimilarProductsNegativeLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vec := make([]float64, 768)
	vec[0] = 1
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := s.PutProductEmbedding(ctx, &ProductEmbedding{ProductID: id, Vector: vec}); err != nil {
			t.Fatalf("PutProductEmbedding failed: %v", err)
		}
	}

	// A negative limit must not panic; it returns everything.
	results, err := s.SearchSimilarProducts(ctx, vec, -1)
	if err != nil {
		t.Fatalf("SearchSimilarProducts failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected all 3 results for negative limit, got %d", len(results))
	}

	results, err = s.SearchSimilarProducts(ctx, vec, 0)
	if err != nil {
		t.Fatalf("SearchSimilarProducts failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results for zero limit, got %d", len(results))
	}
}

func TestSearchSimilarProductsCorruptMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vec := make([]float64, 768)
	vec[0] = 1
	if err := s.PutProductEmbedding(ctx, &ProductEmbedding{ProductID: "good", Vector: vec}); err != nil {
		t.Fatalf("PutProductEmbedding failed: %v", err)
	}

	blob, err := encodeVector(vec)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO product_embeddings (product_id, vector, metadata) VALUES ('bad', ?, '{not json')`, blob); err != nil {
		t.Fatal(err)
	}

	// Rows with undecodable metadata are skipped, same as undecodable
	// vectors, rather than silently returned without their metadata.
	results, err := s.SearchSimilarProducts(ctx, vec, 10)
	if err != nil {
		t.Fatalf("SearchSimilarProducts failed: %v", err)
	}
	if len(results) != 1 || results[0].ProductID != "good" {
		t.Errorf("Expected only the intact row, got %v", results)
	}
}

func TestConcurrentUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Racing writers for the same session must never surface a conflict and
	// must leave exactly one row.
	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := s.UpsertState(ctx, "shared", []byte(fmt.Sprintf("payload-%d", n))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent upsert failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM agent_state WHERE session_id = 'shared'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 row after racing upserts, got %d", count)
	}

	got, err := s.GetState(ctx, "shared")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if len(got.StateBlob) == 0 {
		t.Error("Expected some payload to survive")
	}
}

func TestDropLegacyCheckpoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// No legacy table: nothing to do, not an error.
	res, err := s.DropLegacyCheckpoints(ctx)
	if err != nil {
		t.Fatalf("DropLegacyCheckpoints failed: %v", err)
	}
	if res.Dropped || res.RowsDiscarded != 0 {
		t.Errorf("Expected no-op result, got %+v", res)
	}

	// Simulate the legacy checkpointer's leftovers.
	if _, err := s.db.Exec(`CREATE TABLE checkpoints (thread_id TEXT, checkpoint BLOB)`); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.db.Exec(`INSERT INTO checkpoints (thread_id, checkpoint) VALUES ('t1', x'00')`); err != nil {
			t.Fatal(err)
		}
	}

	res, err = s.DropLegacyCheckpoints(ctx)
	if err != nil {
		t.Fatalf("DropLegacyCheckpoints failed: %v", err)
	}
	if !res.Dropped {
		t.Error("Expected table to be dropped")
	}
	if res.RowsDiscarded != 3 {
		t.Errorf("Expected 3 rows discarded, got %d", res.RowsDiscarded)
	}

	// Idempotent: second run reports nothing to drop.
	res, err = s.DropLegacyCheckpoints(ctx)
	if err != nil {
		t.Fatalf("Second DropLegacyCheckpoints failed: %v", err)
	}
	if res.Dropped {
		t.Error("Expected second drop to be a no-op")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cases := []struct {
		name string
		url  string
	}{
		{"relative url", "sqlite:///a.db"},
		{"absolute url", "sqlite:///" + filepath.Join(dir, "b.db")},
		{"bare path", filepath.Join(dir, "c.db")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Open(tc.url)
			if err != nil {
				t.Fatalf("Open(%q) failed: %v", tc.url, err)
			}
			defer s.Close()
			if _, ok := s.(*SQLiteStore); !ok {
				t.Errorf("Expected SQLite backend for %q", tc.url)
			}
		})
	}

	if _, err := Open("mysql://nope"); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}
