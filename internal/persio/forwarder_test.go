package persio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/persio-forwarder/internal/component"
)

type fetchCall struct {
	url string
	req component.FetchRequest
}

type fakeManager struct {
	listeners map[string]component.EventHandler
	fetches   []fetchCall
}

func newFakeManager() *fakeManager {
	return &fakeManager{listeners: map[string]component.EventHandler{}}
}

func (m *fakeManager) AddEventListener(eventType string, fn component.EventHandler) {
	m.listeners[eventType] = fn
}

func (m *fakeManager) Fetch(u string, req component.FetchRequest) {
	m.fetches = append(m.fetches, fetchCall{url: u, req: req})
}

type setCall struct {
	key, value string
	opts       component.SetOptions
}

type fakeStorage struct {
	values map[string]string
	gets   int
	sets   []setCall
}

func (s *fakeStorage) Get(key string) (string, bool) {
	s.gets++
	v, ok := s.values[key]
	return v, ok
}

func (s *fakeStorage) Set(key, value string, opts component.SetOptions) bool {
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	s.sets = append(s.sets, setCall{key: key, value: value, opts: opts})
	return true
}

func testClient(t *testing.T, st *fakeStorage) *component.Client {
	t.Helper()
	u, err := url.Parse("https://shop.example.com/products/42?ref=mail")
	require.NoError(t, err)
	return &component.Client{
		IP:           "203.0.113.7",
		Language:     "en-US",
		URL:          u,
		Title:        "Product 42",
		Referer:      "https://mail.example.com/",
		ScreenWidth:  1920,
		ScreenHeight: 1080,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Storage:      st,
	}
}

func decodeBody(t *testing.T, call fetchCall) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(call.req.Body, &out))
	return out
}

func TestHandle_TrackExample(t *testing.T) {
	m := newFakeManager()
	st := &fakeStorage{}
	f := New(m, component.Settings{SettingWriteKey: "wk_123"})

	f.Handle(context.Background(), "track", &component.Event{
		Client:  testClient(t, st),
		Payload: map[string]any{"event": "Signup", "anonymousId": "abc"},
	})

	require.Len(t, m.fetches, 1)
	call := m.fetches[0]
	assert.Equal(t, DefaultEndpoint+"track", call.url)
	assert.Equal(t, "POST", call.req.Method)
	assert.Equal(t, "application/json", call.req.Headers["Content-Type"])

	body := decodeBody(t, call)
	assert.Equal(t, "track", body["callType"])
	assert.Equal(t, "Signup", body["event"])
	assert.Equal(t, "abc", body["anonymousId"])
	assert.NotContains(t, body, "userId")
	assert.NotContains(t, body, "traits")
	assert.Equal(t, map[string]any{"event": "Signup", "anonymousId": "abc"}, body["properties"])
	assert.Zero(t, st.gets)
	assert.Empty(t, st.sets)
}

func TestHandle_ContextFields(t *testing.T) {
	m := newFakeManager()
	f := New(m, nil)

	f.Handle(context.Background(), "track", &component.Event{
		Client:  testClient(t, &fakeStorage{}),
		Payload: map[string]any{"userId": "u1"},
	})

	require.Len(t, m.fetches, 1)
	ctx := decodeBody(t, m.fetches[0])["context"].(map[string]any)
	assert.Equal(t, "203.0.113.7", ctx["ip"])
	assert.Equal(t, "en-US", ctx["locale"])
	assert.Equal(t, map[string]any{"width": float64(1920), "height": float64(1080)}, ctx["screen"])
	assert.Equal(t, map[string]any{"name": "Windows"}, ctx["os"])
	assert.True(t, strings.HasPrefix(ctx["userAgent"].(string), "Mozilla/5.0"))
	assert.Equal(t, map[string]any{
		"url":      "https://shop.example.com/products/42?ref=mail",
		"title":    "Product 42",
		"referrer": "https://mail.example.com/",
		"path":     "/products/42",
		"search":   "?ref=mail",
	}, ctx["page"])
}

func TestHandle_IdentifyAndGroupUseTraits(t *testing.T) {
	for _, callType := range []string{"identify", "group"} {
		t.Run(callType, func(t *testing.T) {
			m := newFakeManager()
			f := New(m, nil)
			raw := map[string]any{"userId": "u1", "email": "a@example.com", "plan": "pro"}

			f.Handle(context.Background(), callType, &component.Event{Client: testClient(t, &fakeStorage{}), Payload: raw})

			require.Len(t, m.fetches, 1)
			body := decodeBody(t, m.fetches[0])
			assert.Equal(t, callType, body["callType"])
			assert.Equal(t, map[string]any{"userId": "u1", "email": "a@example.com", "plan": "pro"}, body["traits"])
			assert.NotContains(t, body, "properties")
		})
	}
}

func TestHandle_AliasUsesProperties(t *testing.T) {
	m := newFakeManager()
	f := New(m, nil)

	f.Handle(context.Background(), "alias", &component.Event{
		Client:  testClient(t, &fakeStorage{}),
		Payload: map[string]any{"userId": "u2", "previousId": "u1"},
	})

	body := decodeBody(t, m.fetches[0])
	assert.Equal(t, map[string]any{"userId": "u2", "previousId": "u1"}, body["properties"])
	assert.NotContains(t, body, "traits")
}

func TestHandle_PageMergesPageFields(t *testing.T) {
	m := newFakeManager()
	f := New(m, nil)
	raw := map[string]any{"userId": "u1", "title": "stale", "category": "shoes"}

	f.Handle(context.Background(), "page", &component.Event{Client: testClient(t, &fakeStorage{}), Payload: raw})

	props := decodeBody(t, m.fetches[0])["properties"].(map[string]any)
	assert.Equal(t, "Product 42", props["title"])
	assert.Equal(t, "shoes", props["category"])
	assert.Equal(t, "u1", props["userId"])
	assert.Equal(t, "https://shop.example.com/products/42?ref=mail", props["url"])
	assert.Equal(t, "https://mail.example.com/", props["referrer"])
	assert.Equal(t, "/products/42", props["path"])
	assert.Equal(t, "?ref=mail", props["search"])
	assert.Equal(t, "stale", raw["title"], "caller payload must not be modified")
}

func TestHandle_EmptyPayloadKeepsEmptyTraits(t *testing.T) {
	m := newFakeManager()
	f := New(m, nil, WithIDGenerator(func() string { return "gen" }))

	f.Handle(context.Background(), "identify", &component.Event{Client: testClient(t, &fakeStorage{})})

	body := decodeBody(t, m.fetches[0])
	assert.Equal(t, map[string]any{}, body["traits"])
}

func TestHandle_UserIDSkipsStore(t *testing.T) {
	m := newFakeManager()
	st := &fakeStorage{values: map[string]string{AnonymousIDKey: "stored"}}
	f := New(m, nil)

	f.Handle(context.Background(), "track", &component.Event{
		Client:  testClient(t, st),
		Payload: map[string]any{"userId": "u1"},
	})

	body := decodeBody(t, m.fetches[0])
	assert.Equal(t, "u1", body["userId"])
	assert.NotContains(t, body, "anonymousId")
	assert.Zero(t, st.gets)
	assert.Empty(t, st.sets)
}

func TestHandle_RecoversStoredAnonymousID(t *testing.T) {
	m := newFakeManager()
	st := &fakeStorage{values: map[string]string{AnonymousIDKey: "X"}}
	f := New(m, nil, WithIDGenerator(func() string {
		t.Fatal("id must not be generated")
		return ""
	}))

	f.Handle(context.Background(), "track", &component.Event{Client: testClient(t, st), Payload: map[string]any{"event": "Click"}})

	assert.Equal(t, "X", decodeBody(t, m.fetches[0])["anonymousId"])
	assert.Empty(t, st.sets)
}

func TestHandle_GeneratesAndStoresAnonymousID(t *testing.T) {
	m := newFakeManager()
	st := &fakeStorage{}
	f := New(m, nil)

	f.Handle(context.Background(), "track", &component.Event{Client: testClient(t, st), Payload: map[string]any{"event": "Click"}})

	id, _ := decodeBody(t, m.fetches[0])["anonymousId"].(string)
	require.Len(t, id, 36)
	require.Len(t, st.sets, 1)
	assert.Equal(t, setCall{key: AnonymousIDKey, value: id, opts: component.SetOptions{Scope: component.ScopeInfinite}}, st.sets[0])
}

func TestHandle_AuthorizationDecodesToWriteKey(t *testing.T) {
	for _, key := range []string{"wk_live_abc", "", "ünïcode:key"} {
		m := newFakeManager()
		f := New(m, component.Settings{SettingWriteKey: key})

		f.Handle(context.Background(), "track", &component.Event{Client: testClient(t, &fakeStorage{}), Payload: map[string]any{"userId": "u"}})

		h := m.fetches[0].req.Headers["Authorization"]
		require.True(t, strings.HasPrefix(h, "Basic "))
		dec, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(h, "Basic "))
		require.NoError(t, err)
		assert.Equal(t, key, string(dec))
	}
}

func TestHandle_MissingWriteKeyStillSends(t *testing.T) {
	m := newFakeManager()
	f := New(m, component.Settings{"other": 1})

	f.Handle(context.Background(), "track", &component.Event{Client: testClient(t, &fakeStorage{}), Payload: map[string]any{"userId": "u"}})

	require.Len(t, m.fetches, 1)
	assert.Equal(t, "Basic ", m.fetches[0].req.Headers["Authorization"])
}

func TestHandle_CustomEndpoint(t *testing.T) {
	m := newFakeManager()
	f := New(m, nil, WithEndpoint("http://localhost:9999/v1/"))

	f.Handle(context.Background(), "group", &component.Event{Client: testClient(t, &fakeStorage{}), Payload: map[string]any{"userId": "u"}})

	assert.Equal(t, "http://localhost:9999/v1/group", m.fetches[0].url)
}

func TestRegister_MapsEventTags(t *testing.T) {
	m := newFakeManager()
	Register(m, component.Settings{SettingWriteKey: "k"})

	require.Len(t, m.listeners, 5)
	want := map[string]string{
		"pageview": "page",
		"track":    "track",
		"identify": "identify",
		"alias":    "alias",
		"group":    "group",
	}
	for tag, callType := range want {
		m.fetches = nil
		m.listeners[tag](context.Background(), &component.Event{
			Type:    tag,
			Client:  testClient(t, &fakeStorage{}),
			Payload: map[string]any{"userId": "u"},
		})
		require.Len(t, m.fetches, 1, tag)
		assert.Equal(t, DefaultEndpoint+callType, m.fetches[0].url)
		assert.Equal(t, callType, decodeBody(t, m.fetches[0])["callType"])
	}
}

func TestBuildPayload_NilClient(t *testing.T) {
	p := BuildPayload("page", nil, map[string]any{"a": 1})

	assert.Equal(t, "page", p.CallType)
	assert.Equal(t, "", p.Context.Page.URL)
	assert.Equal(t, 1, p.Properties["a"])
	assert.Equal(t, "", p.Properties["url"])
}

func TestBuildPayload_EventOnlyWhenSet(t *testing.T) {
	assert.Equal(t, "", BuildPayload("track", nil, map[string]any{}).Event)
	assert.Equal(t, "", BuildPayload("track", nil, map[string]any{"event": ""}).Event)
	assert.Equal(t, "Buy", BuildPayload("track", nil, map[string]any{"event": "Buy"}).Event)
}

func TestHandle_PageEncodedPath(t *testing.T) {
	cases := []struct {
		raw, url, path, search string
	}{
		{"https://shop.example.com/caf%C3%A9/a%20b", "https://shop.example.com/caf%C3%A9/a%20b", "/caf%C3%A9/a%20b", ""},
		{"https://shop.example.com", "https://shop.example.com/", "/", ""},
		{"https://shop.example.com?q=1", "https://shop.example.com/?q=1", "/", "?q=1"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			u, err := url.Parse(tc.raw)
			require.NoError(t, err)
			m := newFakeManager()
			f := New(m, nil)

			f.Handle(context.Background(), "page", &component.Event{
				Client:  &component.Client{URL: u, Storage: &fakeStorage{}},
				Payload: map[string]any{"userId": "u1"},
			})

			body := decodeBody(t, m.fetches[0])
			page := body["context"].(map[string]any)["page"].(map[string]any)
			assert.Equal(t, tc.url, page["url"])
			assert.Equal(t, tc.path, page["path"])
			assert.Equal(t, tc.search, page["search"])

			props := body["properties"].(map[string]any)
			assert.Equal(t, tc.url, props["url"])
			assert.Equal(t, tc.path, props["path"])
			assert.Equal(t, tc.raw, u.String(), "client URL must not be modified")
		})
	}
}
