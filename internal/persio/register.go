package persio

import (
	"context"

	"github.com/PratikDhanave/persio-forwarder/internal/component"
)

// callTypes maps host event tags to Persio call types.
var callTypes = map[string]string{
	component.EventPageview: callPage,
	component.EventTrack:    "track",
	component.EventIdentify: callIdentify,
	component.EventAlias:    "alias",
	component.EventGroup:    callGroup,
}

// Register builds a Forwarder and subscribes it to every host event tag.
func Register(m component.Manager, settings component.Settings, opts ...Option) *Forwarder {
	f := New(m, settings, opts...)
	for _, tag := range component.EventTypes {
		callType := callTypes[tag]
		m.AddEventListener(tag, func(ctx context.Context, ev *component.Event) {
			f.Handle(ctx, callType, ev)
		})
	}
	return f
}
