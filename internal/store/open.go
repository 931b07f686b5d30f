package store

import (
	"context"
	"fmt"
)

// Backends accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendPebble   = "pebble"
)

// Options selects and configures a backend.
type Options struct {
	Backend   string
	DBURL     string
	PebbleDir string
}

// Open returns the configured Store. Postgres schemas are applied on open.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendPostgres:
		pg, err := NewPostgresStore(ctx, opts.DBURL)
		if err != nil {
			return nil, fmt.Errorf("store: connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("store: apply schema: %w", err)
		}
		return pg, nil
	case BackendPebble:
		return NewPebbleStore(opts.PebbleDir)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
	}
}
