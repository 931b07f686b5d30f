package persio

import (
	"fmt"
	"maps"

	"github.com/PratikDhanave/persio-forwarder/internal/component"
	"github.com/PratikDhanave/persio-forwarder/internal/useragent"
)

// Payload is the document posted to the Persio API.
type Payload struct {
	Event       string         `json:"event,omitempty"`
	CallType    string         `json:"callType"`
	AnonymousID string         `json:"anonymousId,omitempty"`
	UserID      string         `json:"userId,omitempty"`
	Context     Context        `json:"context"`
	Traits      map[string]any `json:"traits,omitzero"`
	Properties  map[string]any `json:"properties,omitzero"`
}

// Context carries the client details of the call.
type Context struct {
	IP        string `json:"ip"`
	Locale    string `json:"locale"`
	Page      Page   `json:"page"`
	Screen    Screen `json:"screen"`
	OS        OS     `json:"os"`
	UserAgent string `json:"userAgent"`
}

type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Referrer string `json:"referrer"`
	Path     string `json:"path"`
	Search   string `json:"search"`
}

type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type OS struct {
	Name string `json:"name,omitempty"`
}

// BuildPayload shapes a raw event into a Payload. Identity fields are copied from the raw
// payload only; resolving missing ids against the client store is left to the caller.
func BuildPayload(callType string, client *component.Client, raw map[string]any) *Payload {
	if raw == nil {
		raw = map[string]any{}
	}
	if client == nil {
		client = &component.Client{}
	}
	ua := useragent.Parse(client.UserAgent)

	p := &Payload{
		Event:       stringField(raw, "event"),
		CallType:    callType,
		AnonymousID: stringField(raw, "anonymousId"),
		UserID:      stringField(raw, "userId"),
		Context: Context{
			IP:        client.IP,
			Locale:    client.Language,
			Page:      pageOf(client),
			Screen:    Screen{Width: client.ScreenWidth, Height: client.ScreenHeight},
			OS:        OS{Name: ua.OSName},
			UserAgent: ua.UA,
		},
	}

	switch callType {
	case callIdentify, callGroup:
		p.Traits = raw
	default:
		p.Properties = maps.Clone(raw)
	}

	if callType == callPage {
		pg := p.Context.Page
		p.Properties["url"] = pg.URL
		p.Properties["title"] = pg.Title
		p.Properties["referrer"] = pg.Referrer
		p.Properties["path"] = pg.Path
		p.Properties["search"] = pg.Search
	}
	return p
}

func pageOf(c *component.Client) Page {
	pg := Page{Title: c.Title, Referrer: c.Referer}
	if c.URL == nil {
		return pg
	}
	u := *c.URL
	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}
	pg.URL = u.String()
	pg.Path = u.EscapedPath()
	if u.RawQuery != "" {
		pg.Search = "?" + u.RawQuery
	}
	return pg
}

// stringField reads key from raw. Non-string values are formatted; nil, false and "" count as absent.
func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if !v {
			return ""
		}
		return "true"
	default:
		return fmt.Sprint(v)
	}
}
