package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps client values in an embedded pebble database.
// Values are encoded as an 8-byte big-endian expiry (unix nanos, 0 = never) followed by the value.
type PebbleStore struct {
	db  *pebble.DB
	now func() time.Time
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	if dir == "" {
		return nil, errors.New("store: pebble dir required")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("store: open pebble: %w", err)
	}
	return &PebbleStore{db: db, now: time.Now}, nil
}

func pebbleKey(clientID, key string) []byte {
	b := make([]byte, 0, len(clientID)+1+len(key))
	b = append(b, clientID...)
	b = append(b, 0)
	return append(b, key...)
}

func (s *PebbleStore) Get(_ context.Context, clientID, key string) (string, error) {
	raw, closer, err := s.db.Get(pebbleKey(clientID, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	defer closer.Close()

	if len(raw) < 8 {
		return "", fmt.Errorf("store: corrupt value for %q", key)
	}
	var expiresAt time.Time
	if ns := int64(binary.BigEndian.Uint64(raw[:8])); ns != 0 {
		expiresAt = time.Unix(0, ns)
	}
	if expired(expiresAt, s.now()) {
		return "", ErrNotFound
	}
	return string(raw[8:]), nil
}

func (s *PebbleStore) Set(_ context.Context, clientID, key, value string, expiresAt time.Time) error {
	buf := make([]byte, 8+len(value))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt.UnixNano()))
	}
	copy(buf[8:], value)
	return s.db.Set(pebbleKey(clientID, key), buf, pebble.Sync)
}

func (s *PebbleStore) Ping(context.Context) error { return nil }

func (s *PebbleStore) Close() error { return s.db.Close() }
