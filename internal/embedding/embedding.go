// Package embedding resolves fixed-size reference embeddings, such as the
// beauty standard vector the ranking pipeline compares product candidates
// against. A vector is looked up through an ordered chain of sources
// (per-request overrides, an environment variable, an .npy file) and falls
// back to a zero placeholder so a missing or broken source never blocks
// ranking. Callers that care about misconfiguration must inspect the Source
// tag of the returned value.
package embedding

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/aura-ai/aura/internal/observe"
)

// Dim is the required length of every resolved embedding.
const Dim = 768

// KeyBeautyStandard is the configuration key of the ranking reference vector.
const KeyBeautyStandard = "beauty_standard_embedding"

// Source identifies which tier supplied a resolved value.
type Source string

const (
	SourceRuntime     Source = "runtime"
	SourceEnv         Source = "env"
	SourceFile        Source = "file"
	SourcePlaceholder Source = "placeholder"
)

// Value is one resolved embedding. A fresh Value is produced per Resolve
// call; the vector is never shared with a source.
type Value struct {
	Key    string
	Vector []float64
	Source Source
}

// Resolver looks up embeddings by key. It is stateless and safe for
// concurrent use.
type Resolver struct {
	obs  *observe.Observer
	path string
}

// NewResolver creates a Resolver. A nil observer disables diagnostics.
func NewResolver(obs *observe.Observer) *Resolver {
	if obs == nil {
		obs = observe.NewDiscard()
	}
	return &Resolver{obs: obs}
}

// EnvVar returns the environment variable holding the inline vector for key,
// e.g. BEAUTY_STANDARD_EMBEDDING.
func EnvVar(key string) string {
	return strings.ToUpper(key)
}

// PathEnvVar returns the environment variable holding the file path for key,
// e.g. BEAUTY_STANDARD_EMBEDDING_PATH.
func PathEnvVar(key string) string {
	return strings.ToUpper(key) + "_PATH"
}

// DefaultPath returns the fallback file location for key.
func DefaultPath(key string) string {
	return filepath.Join("data", key+".npy")
}

// UsePath pins the file-tier location, taking precedence over the path
// environment variable. Used when the location comes from a config file.
func (r *Resolver) UsePath(path string) {
	r.path = path
}

// PathFor returns the file path the file tier reads for key.
func (r *Resolver) PathFor(key string) string {
	if r.path != "" {
		return r.path
	}
	if p := os.Getenv(PathEnvVar(key)); p != "" {
		return p
	}
	return DefaultPath(key)
}

// Resolve returns the embedding for key, trying each tier in order:
// overrides, environment variable, file, zero placeholder. Malformed tiers
// are logged and skipped; Resolve never fails and the returned vector always
// has exactly Dim elements.
func (r *Resolver) Resolve(key string, overrides map[string][]float64) Value {
	tiers := []struct {
		source Source
		lookup func(string) []float64
	}{
		{SourceRuntime, func(k string) []float64 { return r.fromOverrides(k, overrides) }},
		{SourceEnv, r.fromEnv},
		{SourceFile, r.fromFile},
	}

	for _, t := range tiers {
		if vec := t.lookup(key); vec != nil {
			return Value{Key: key, Vector: vec, Source: t.source}
		}
	}

	r.obs.Log().Warn().Str("key", key).
		Msg("no embedding source configured, using zero placeholder")
	return Value{Key: key, Vector: make([]float64, Dim), Source: SourcePlaceholder}
}

func (r *Resolver) fromOverrides(key string, overrides map[string][]float64) []float64 {
	vec, ok := overrides[key]
	if !ok {
		return nil
	}
	if len(vec) != Dim {
		r.obs.Log().Warn().Str("key", key).Int("len", len(vec)).
			Msg("runtime override has wrong length, skipping")
		return nil
	}
	out := make([]float64, Dim)
	copy(out, vec)
	return out
}

func (r *Resolver) fromEnv(key string) []float64 {
	name := EnvVar(key)
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}

	vec, err := ParseVector(raw)
	if err != nil {
		r.obs.Log().Warn().Str("var", name).Err(err).
			Msg("unparsable inline embedding, skipping")
		return nil
	}
	if len(vec) != Dim {
		r.obs.Log().Warn().Str("var", name).Int("len", len(vec)).
			Msg("inline embedding has wrong length, skipping")
		return nil
	}
	return vec
}

func (r *Resolver) fromFile(key string) []float64 {
	path := r.PathFor(key)
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	vec, err := ReadNpyFile(path)
	if err != nil {
		r.obs.Log().Warn().Str("path", path).Err(err).
			Msg("could not load embedding file, skipping")
		return nil
	}
	if len(vec) != Dim {
		r.obs.Log().Warn().Str("path", path).Int("len", len(vec)).
			Msg("embedding file has wrong shape, skipping")
		return nil
	}
	return vec
}

// Persist writes vec to durable storage at path, overwriting any existing
// file. An empty path means the file-tier location of the beauty standard
// key. Unlike Resolve this validates strictly: it is an explicit operator
// action, not a runtime read. The file is written to a temporary name and
// renamed into place so readers never observe a partial write.
func (r *Resolver) Persist(vec []float64, path string) error {
	if len(vec) != Dim {
		return fmt.Errorf("embedding must have exactly %d elements, got %d", Dim, len(vec))
	}
	if path == "" {
		path = r.PathFor(KeyBeautyStandard)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create embedding directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".embedding-*.npy")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := WriteNpy(tmp, vec); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to flush embedding file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace embedding file: %w", err)
	}

	r.obs.Log().Info().Str("path", path).Msg("embedding saved")
	return nil
}

// ParseVector parses an inline vector encoded as comma-separated decimal
// floats. Surrounding whitespace (including newlines) is tolerated, so the
// same format works for environment variables and small text files.
func ParseVector(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty vector")
	}

	vec := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector element %q: %w", f, err)
		}
		vec = append(vec, v)
	}
	return vec, nil
}
