// Package guard enforces path policy on operator-initiated writes, keeping
// commands like `aura embedding set` from clobbering files outside the data
// directory.
package guard

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy defines where operator writes may land.
type Policy struct {
	AllowedWriteGlobs []string `json:"allowed_write_globs" yaml:"allowed_write_globs"`
}

// DefaultPolicy allows writes under data/ and explicit .npy targets.
var DefaultPolicy = Policy{
	AllowedWriteGlobs: []string{"data/**", "**/*.npy"},
}

// Violation represents a specific breach of policy.
type Violation struct {
	Rule    string
	Message string
}

// Guard enforces the policy.
type Guard struct {
	policy Policy
}

func New(p Policy) *Guard {
	return &Guard{policy: p}
}

// Policy returns the guard's current policy configuration.
func (g *Guard) Policy() Policy {
	return g.policy
}

// CheckWritePath verifies that a target path matches an allowed glob.
func (g *Guard) CheckWritePath(path string) *Violation {
	normalized := filepath.ToSlash(path)

	for _, pattern := range g.policy.AllowedWriteGlobs {
		match, err := doublestar.Match(pattern, normalized)
		if err == nil && match {
			return nil
		}
	}

	return &Violation{
		Rule:    "allowed_write_globs",
		Message: "Write target not allowed: " + path,
	}
}
