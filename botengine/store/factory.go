package store

import (
	"fmt"
	"net/url"
	"strings"
)

// Open builds the store bundle from a DSN. The scheme selects the backend:
// postgres://... gives a shared-nothing Postgres bundle, memory:// (or an
// empty DSN) gives the process-local one. The returned closer releases the
// backend's resources and is a no-op for the in-memory bundle.
func Open(dsn string) (Stores, func() error, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return NewInMemoryStores(), func() error { return nil }, nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return Stores{}, nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	switch scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme)); scheme {
	case "memory", "mem", "inmem":
		return NewInMemoryStores(), func() error { return nil }, nil
	case "postgres", "postgresql":
		pg, err := NewPostgresStores(dsn)
		if err != nil {
			return Stores{}, nil, err
		}
		return pg.Stores(), pg.Close, nil
	default:
		return Stores{}, nil, fmt.Errorf("store: unsupported dsn scheme %q", scheme)
	}
}
