package store

import (
	"fmt"
	"strings"
)

// DefaultDatabaseURL is used when no database is configured, matching the
// local development default.
const DefaultDatabaseURL = "sqlite://database.db"

// Open selects a backend from a database URL. SQLite URLs (sqlite://path,
// sqlite:///path) and bare file paths open the embedded backend; postgres://
// and postgresql:// DSNs open the PostgreSQL backend.
func Open(databaseURL string) (Storage, error) {
	url := strings.TrimSpace(databaseURL)
	if url == "" {
		url = DefaultDatabaseURL
	}

	switch {
	case strings.HasPrefix(url, "sqlite:///"):
		return NewSQLiteStore(strings.TrimPrefix(url, "sqlite:///"))
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteStore(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgresStore(url)
	case strings.Contains(url, "://"):
		return nil, fmt.Errorf("unsupported database URL: %s", url)
	default:
		// Bare path, treat as a SQLite file.
		return NewSQLiteStore(url)
	}
}
