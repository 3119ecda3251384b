package guard

import "testing"

func TestCheckWritePath(t *testing.T) {
	g := New(DefaultPolicy)

	allowed := []string{
		"data/beauty_standard_embedding.npy",
		"data/embeddings/v2.npy",
		"exports/backup.npy",
	}
	for _, p := range allowed {
		if v := g.CheckWritePath(p); v != nil {
			t.Errorf("expected %q to be allowed, got violation: %s", p, v.Message)
		}
	}

	denied := []string{
		"/etc/passwd",
		"database.db",
		"main.go",
	}
	for _, p := range denied {
		if v := g.CheckWritePath(p); v == nil {
			t.Errorf("expected %q to be denied", p)
		}
	}
}

func TestCheckWritePathCustomPolicy(t *testing.T) {
	g := New(Policy{AllowedWriteGlobs: []string{"tmp/*"}})

	if v := g.CheckWritePath("tmp/vec.npy"); v != nil {
		t.Errorf("expected tmp/vec.npy to be allowed, got %s", v.Message)
	}
	if v := g.CheckWritePath("data/vec.npy"); v == nil {
		t.Error("expected data/vec.npy to be denied under custom policy")
	}
	if v := g.CheckWritePath("x"); v == nil || v.Rule != "allowed_write_globs" {
		t.Error("expected violation naming the rule")
	}
}

func TestCheckWritePathWindowsSeparators(t *testing.T) {
	g := New(DefaultPolicy)
	// filepath.ToSlash is a no-op on unix, but glob matching must always see
	// forward slashes.
	if v := g.CheckWritePath("data/sub/vec.npy"); v != nil {
		t.Errorf("expected nested data path to be allowed, got %s", v.Message)
	}
}
