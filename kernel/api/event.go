package api

import (
	"context"
	"errors"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/listener"
)

// Sender delivers a message via the root router, without waiting for any
// reply — the shape an Event publish needs.
type Sender interface {
	Send(ctx context.Context, msg foundation.Message) error
}

// Events is the fire-and-forget half of the API surface: no correlation
// id, no response, dispatched to both registered routes (via the normal
// router) and listener fan-out (C8).
type Events struct {
	host      foundation.Host
	listeners *listener.Manager
	sender    Sender
}

// NewEvents builds an Events surface bound to host.
func NewEvents(host foundation.Host, listeners *listener.Manager, sender Sender) *Events {
	return &Events{host: host, listeners: listeners, sender: sender}
}

// On subscribes handler to events matching pathPattern, in addition to
// whatever routes are separately registered against the same path.
func (e *Events) On(pathPattern string, handler listener.Handler) (int, error) {
	return e.listeners.On(pathPattern, handler)
}

// Off removes a subscription previously returned by On.
func (e *Events) Off(id int) {
	e.listeners.Off(id)
}

// Publish sends an event to target (a full "scheme://..." path). It
// carries no correlation id and expects no reply; the publisher returns
// as soon as the message is handed to the sender and fanned out to local
// listeners, never waiting on anything a subscriber does in response. A
// target with no registered route is not an error — listener fan-out is
// the primary delivery mechanism, a registered route is additional.
func (e *Events) Publish(ctx context.Context, target string, body interface{}) error {
	path, err := foundation.ParsePath(target)
	if err != nil {
		return err
	}
	msg := foundation.NewMessage(path, foundation.KindEvent, body)

	e.listeners.Emit(ctx, msg)

	if err := e.sender.Send(ctx, msg); err != nil && !errors.Is(err, foundation.ErrNoRoute) {
		return err
	}
	return nil
}
