// Package component defines the capabilities a host runtime hands to an event component:
// event subscription, outbound HTTP, and a per-client key-value store.
package component

import (
	"context"
	"net/url"
	"time"
)

// Event type tags delivered by the host.
const (
	EventPageview = "pageview"
	EventTrack    = "track"
	EventIdentify = "identify"
	EventAlias    = "alias"
	EventGroup    = "group"
)

// EventTypes lists every tag the host can dispatch.
var EventTypes = []string{EventPageview, EventTrack, EventIdentify, EventAlias, EventGroup}

// KnownEventType reports whether t is one of EventTypes.
func KnownEventType(t string) bool {
	for _, et := range EventTypes {
		if et == t {
			return true
		}
	}
	return false
}

// EventHandler receives one dispatched event.
type EventHandler func(ctx context.Context, ev *Event)

// FetchRequest describes an outbound HTTP request.
type FetchRequest struct {
	Method  string
	Headers map[string]string
	Body    []byte
}

// Manager is the host surface a component is constructed with.
type Manager interface {
	AddEventListener(eventType string, fn EventHandler)
	// Fetch sends the request without waiting for the response.
	Fetch(url string, req FetchRequest)
}

// Event is a single host event.
type Event struct {
	Type    string
	Payload map[string]any
	Client  *Client
}

// Client is the browser context attached to an event.
type Client struct {
	IP           string
	Language     string
	URL          *url.URL
	Title        string
	Referer      string
	ScreenWidth  int
	ScreenHeight int
	UserAgent    string

	Storage
}

// Scope controls how long a stored client value lives.
type Scope string

const (
	ScopePage     Scope = "page"
	ScopeSession  Scope = "session"
	ScopeInfinite Scope = "infinite"
)

// SetOptions configures Storage.Set. A non-zero Expiry overrides the scope default.
type SetOptions struct {
	Scope  Scope
	Expiry time.Duration
}

// Storage is the cookie-like store scoped to one client.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string, opts SetOptions) bool
}

// Settings are the per-component options configured on the host.
type Settings map[string]any

// String returns the setting as a string, or "" when it is missing or not a string.
func (s Settings) String(key string) string {
	v, _ := s[key].(string)
	return v
}
