package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aura-ai/aura/internal/store"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DatabaseURL != store.DefaultDatabaseURL {
		t.Errorf("expected default database URL, got %q", cfg.DatabaseURL)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aura.yaml")
	content := "database_url: postgres://aura@localhost/aura\nembedding_path: /srv/aura/beauty.npy\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabaseURL != "postgres://aura@localhost/aura" {
		t.Errorf("unexpected database URL: %q", cfg.DatabaseURL)
	}
	if cfg.EmbeddingPath != "/srv/aura/beauty.npy" {
		t.Errorf("unexpected embedding path: %q", cfg.EmbeddingPath)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aura.json")
	content := `{"allowed_write_globs": ["data/**"]}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.AllowedWriteGlobs) != 1 || cfg.AllowedWriteGlobs[0] != "data/**" {
		t.Errorf("unexpected globs: %v", cfg.AllowedWriteGlobs)
	}
	// Unset fields keep their defaults.
	if cfg.DatabaseURL != store.DefaultDatabaseURL {
		t.Errorf("expected default database URL, got %q", cfg.DatabaseURL)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aura.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env@host/db")
	t.Setenv("BEAUTY_STANDARD_EMBEDDING_PATH", "/env/beauty.npy")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.DatabaseURL != "postgres://env@host/db" {
		t.Errorf("expected env to override database URL, got %q", cfg.DatabaseURL)
	}
	if cfg.EmbeddingPath != "/env/beauty.npy" {
		t.Errorf("expected env to override embedding path, got %q", cfg.EmbeddingPath)
	}
}
