// Package store persists per-client key-value pairs for the host runtime.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is missing or expired.
var ErrNotFound = errors.New("store: not found")

// Store holds values keyed by (clientID, key). A zero expiresAt never expires.
type Store interface {
	Get(ctx context.Context, clientID, key string) (string, error)
	Set(ctx context.Context, clientID, key, value string, expiresAt time.Time) error
	Ping(ctx context.Context) error
	Close() error
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}
