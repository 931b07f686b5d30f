// Package host is the runtime that components are registered against: it dispatches events to
// listeners, performs their outbound requests and backs their client storage.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/PratikDhanave/persio-forwarder/internal/component"
)

// DefaultFetchTimeout bounds one outbound request.
const DefaultFetchTimeout = 10 * time.Second

// ErrNoListeners is returned by Dispatch when nothing subscribed to the event type.
var ErrNoListeners = errors.New("host: no listeners for event type")

// Manager implements component.Manager.
type Manager struct {
	mu        sync.RWMutex
	listeners map[string][]component.EventHandler

	client  *http.Client
	timeout time.Duration
	log     *zap.Logger

	inflight sync.WaitGroup

	dispatched sync.Map // event type -> *atomic.Int64
	sent       atomic.Int64
	failed     atomic.Int64
}

// NewManager returns a Manager. A nil client uses http.DefaultClient; a non-positive timeout
// uses DefaultFetchTimeout.
func NewManager(client *http.Client, timeout time.Duration, log *zap.Logger) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		listeners: map[string][]component.EventHandler{},
		client:    client,
		timeout:   timeout,
		log:       log,
	}
}

// AddEventListener subscribes fn to eventType.
func (m *Manager) AddEventListener(eventType string, fn component.EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[eventType] = append(m.listeners[eventType], fn)
}

// Dispatch runs every listener of eventType in the calling goroutine and returns how many ran.
func (m *Manager) Dispatch(ctx context.Context, eventType string, ev *component.Event) (int, error) {
	m.mu.RLock()
	fns := append([]component.EventHandler(nil), m.listeners[eventType]...)
	m.mu.RUnlock()

	if len(fns) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoListeners, eventType)
	}

	m.counter(eventType).Add(1)
	if ev.Type == "" {
		ev.Type = eventType
	}
	for _, fn := range fns {
		fn(ctx, ev)
	}
	return len(fns), nil
}

// Fetch performs the request in its own goroutine with a detached timeout context so the
// caller is never blocked. Failures are logged and counted, never retried.
func (m *Manager) Fetch(url string, req component.FetchRequest) {
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := m.do(ctx, url, req); err != nil {
			m.failed.Add(1)
			m.log.Warn("host: fetch failed", zap.String("url", url), zap.Error(err))
			return
		}
		m.sent.Add(1)
	}()
}

func (m *Manager) do(ctx context.Context, url string, req component.FetchRequest) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	m.log.Debug("host: fetch done", zap.String("url", url), zap.Int("status", resp.StatusCode))
	return nil
}

// Wait blocks until in-flight fetches finish or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) counter(eventType string) *atomic.Int64 {
	c, _ := m.dispatched.LoadOrStore(eventType, new(atomic.Int64))
	return c.(*atomic.Int64)
}

// Stats is a snapshot of Manager counters.
type Stats struct {
	Dispatched  map[string]int64 `json:"dispatched"`
	FetchSent   int64            `json:"fetch_sent"`
	FetchFailed int64            `json:"fetch_failed"`
}

// Stats returns the current counters.
func (m *Manager) Stats() Stats {
	s := Stats{
		Dispatched:  map[string]int64{},
		FetchSent:   m.sent.Load(),
		FetchFailed: m.failed.Load(),
	}
	m.dispatched.Range(func(k, v any) bool {
		s.Dispatched[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return s
}
