// Package ingest turns inbound dispatch requests into host events.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/PratikDhanave/persio-forwarder/internal/component"
	"github.com/PratikDhanave/persio-forwarder/internal/host"
	"github.com/PratikDhanave/persio-forwarder/internal/models"
	"github.com/PratikDhanave/persio-forwarder/internal/store"
)

// ErrUnknownEventType is returned for tags outside component.EventTypes.
var ErrUnknownEventType = errors.New("ingest: unknown event type")

// ErrInvalidURL is returned when the client URL cannot be parsed.
var ErrInvalidURL = errors.New("ingest: invalid client url")

// Dispatcher hands requests to a host Manager.
type Dispatcher struct {
	Manager    *host.Manager
	Store      store.Store
	SessionTTL time.Duration
	Log        *zap.Logger
}

// Dispatch validates req and runs the listeners for req.Type.
func (d *Dispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) (int, error) {
	if !component.KnownEventType(req.Type) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, req.Type)
	}

	client, err := d.client(ctx, req.Client)
	if err != nil {
		return 0, err
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}

	return d.Manager.Dispatch(ctx, req.Type, &component.Event{
		Type:    req.Type,
		Payload: payload,
		Client:  client,
	})
}

func (d *Dispatcher) client(ctx context.Context, cc models.ClientContext) (*component.Client, error) {
	var u *url.URL
	if cc.URL != "" {
		parsed, err := url.Parse(cc.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		u = parsed
	}

	st, clientID := d.Store, cc.ID
	if clientID == "" || st == nil {
		st, clientID = store.NewMemory(), "ephemeral"
	}

	return &component.Client{
		IP:           cc.IP,
		Language:     cc.Language,
		URL:          u,
		Title:        cc.Title,
		Referer:      cc.Referer,
		ScreenWidth:  cc.ScreenWidth,
		ScreenHeight: cc.ScreenHeight,
		UserAgent:    cc.UserAgent,
		Storage:      host.NewStorage(ctx, st, clientID, d.SessionTTL, d.Log),
	}, nil
}
