package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore keeps client values in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// Get returns the unexpired value for (clientID, key).
func (p *PostgresStore) Get(ctx context.Context, clientID, key string) (string, error) {
	var value string
	err := p.pool.QueryRow(ctx, `
		SELECT value
		FROM client_values
		WHERE client_id=$1
		  AND key=$2
		  AND (expires_at IS NULL OR expires_at > now())
	`, clientID, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Set upserts the value; a zero expiresAt is stored as NULL.
func (p *PostgresStore) Set(ctx context.Context, clientID, key, value string, expiresAt time.Time) error {
	var exp *time.Time
	if !expiresAt.IsZero() {
		t := expiresAt.UTC()
		exp = &t
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO client_values(client_id, key, value, expires_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (client_id, key)
		DO UPDATE SET value=EXCLUDED.value, expires_at=EXCLUDED.expires_at, updated_at=now()
	`, clientID, key, value, exp)
	return err
}
