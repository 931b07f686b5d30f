// Package persio forwards host analytics events to the Persio ingestion API.
package persio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PratikDhanave/persio-forwarder/internal/component"
)

// DefaultEndpoint is the API base; the call type is appended to it.
const DefaultEndpoint = "https://api.persio.io/v1/"

// AnonymousIDKey is the client store key holding the generated anonymous id.
const AnonymousIDKey = "ajs_anonymous_id"

// SettingWriteKey names the setting carrying the tenant credential.
const SettingWriteKey = "writeKey"

const (
	callPage     = "page"
	callIdentify = "identify"
	callGroup    = "group"
)

// Forwarder shapes events and posts them through the host manager.
type Forwarder struct {
	manager  component.Manager
	settings component.Settings
	endpoint string
	newID    func() string
	log      *zap.Logger
}

// Option customizes a Forwarder.
type Option func(*Forwarder)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(f *Forwarder) {
		if endpoint != "" {
			f.endpoint = endpoint
		}
	}
}

// WithIDGenerator replaces the UUID v4 generator used for anonymous ids.
func WithIDGenerator(fn func() string) Option {
	return func(f *Forwarder) { f.newID = fn }
}

// WithLogger sets the logger used for payloads that cannot be encoded.
func WithLogger(l *zap.Logger) Option {
	return func(f *Forwarder) { f.log = l }
}

// New returns a Forwarder bound to m and settings.
func New(m component.Manager, settings component.Settings, opts ...Option) *Forwarder {
	f := &Forwarder{
		manager:  m,
		settings: settings,
		endpoint: DefaultEndpoint,
		newID:    func() string { return uuid.New().String() },
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handle shapes ev as callType and issues one POST. Nothing is returned and the response is
// never inspected.
func (f *Forwarder) Handle(ctx context.Context, callType string, ev *component.Event) {
	if ev == nil {
		return
	}
	p := BuildPayload(callType, ev.Client, ev.Payload)
	f.resolveIdentity(p, ev.Client)

	body, err := json.Marshal(p)
	if err != nil {
		f.log.Warn("persio: marshal payload", zap.String("call_type", callType), zap.Error(err))
		return
	}

	f.manager.Fetch(f.endpoint+callType, component.FetchRequest{
		Method: http.MethodPost,
		Headers: map[string]string{
			"Authorization": AuthorizationHeader(f.settings.String(SettingWriteKey)),
			"Content-Type":  "application/json",
		},
		Body: body,
	})
}

// resolveIdentity fills anonymousId when the payload carried neither id: first from the
// client store, otherwise with a fresh id that is written back with infinite scope.
// The read and the write are not atomic.
func (f *Forwarder) resolveIdentity(p *Payload, client *component.Client) {
	if p.UserID != "" || p.AnonymousID != "" {
		return
	}
	if client == nil || client.Storage == nil {
		p.AnonymousID = f.newID()
		return
	}
	if id, ok := client.Get(AnonymousIDKey); ok && id != "" {
		p.AnonymousID = id
		return
	}
	id := f.newID()
	p.AnonymousID = id
	client.Set(AnonymousIDKey, id, component.SetOptions{Scope: component.ScopeInfinite})
}

// AuthorizationHeader returns the Basic credential for writeKey.
func AuthorizationHeader(writeKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(writeKey))
}
