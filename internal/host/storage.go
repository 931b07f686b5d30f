package host

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PratikDhanave/persio-forwarder/internal/component"
	"github.com/PratikDhanave/persio-forwarder/internal/store"
)

// DefaultSessionTTL is the lifetime of session-scoped values.
const DefaultSessionTTL = 30 * time.Minute

// Storage implements component.Storage for one client over a store.Store.
// Page-scoped values stay in memory for the lifetime of the Storage.
type Storage struct {
	ctx        context.Context
	st         store.Store
	clientID   string
	sessionTTL time.Duration
	log        *zap.Logger
	now        func() time.Time

	mu   sync.Mutex
	page map[string]string
}

// NewStorage binds st to clientID. ctx bounds every store call made through it.
func NewStorage(ctx context.Context, st store.Store, clientID string, sessionTTL time.Duration, log *zap.Logger) *Storage {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Storage{
		ctx:        ctx,
		st:         st,
		clientID:   clientID,
		sessionTTL: sessionTTL,
		log:        log,
		now:        time.Now,
		page:       map[string]string{},
	}
}

// Get prefers a page-scoped value over a stored one.
func (s *Storage) Get(key string) (string, bool) {
	s.mu.Lock()
	v, ok := s.page[key]
	s.mu.Unlock()
	if ok {
		return v, true
	}

	v, err := s.st.Get(s.ctx, s.clientID, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("host: client get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return v, true
}

// Set stores value according to opts and reports whether it was kept.
func (s *Storage) Set(key, value string, opts component.SetOptions) bool {
	if opts.Scope == component.ScopePage {
		s.mu.Lock()
		s.page[key] = value
		s.mu.Unlock()
		return true
	}

	var expiresAt time.Time
	switch {
	case opts.Expiry > 0:
		expiresAt = s.now().Add(opts.Expiry)
	case opts.Scope == component.ScopeInfinite:
	default:
		expiresAt = s.now().Add(s.sessionTTL)
	}

	if err := s.st.Set(s.ctx, s.clientID, key, value, expiresAt); err != nil {
		s.log.Warn("host: client set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
