package request

import (
	"context"
	"time"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

// Sender delivers a message via the root router.
type Sender interface {
	Send(ctx context.Context, msg foundation.Message) error
}

// Requester issues one-shot and channel-backed Ask calls on behalf of one
// subsystem (the caller).
type Requester struct {
	host   foundation.Host
	store  *Store
	sender Sender
}

// New creates a Requester bound to the given subsystem, pending-response
// store, and root sender.
func New(host foundation.Host, store *Store, sender Sender) *Requester {
	return &Requester{host: host, store: store, sender: sender}
}

func responseHandler(store *Store) foundation.HandlerFunc {
	return func(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
		res, _ := msg.Body.(*foundation.Result)
		store.Resolve(msg.Meta.CorrelationID(), res)
		return foundation.Ok(nil), nil
	}
}

// Ask sends msg as a one-shot request: an ephemeral reply route is
// installed on the caller's subsystem for the duration of the call and
// torn down unconditionally before Ask returns, whether it resolved,
// timed out, or was cancelled.
func (r *Requester) Ask(ctx context.Context, msg foundation.Message, timeout time.Duration) (*foundation.Result, error) {
	corrID := foundation.NewCorrelationID()
	replyPath := r.host.FullPath().Child("reply", corrID)

	if err := r.host.RegisterRoute(replyPath.String(), responseHandler(r.store), foundation.RouteOptions{}); err != nil {
		return nil, err
	}
	defer r.host.UnregisterRoute(replyPath.String())

	r.store.Register(corrID)

	stamped := msg.
		WithMeta(foundation.MetaReplyPath, replyPath.String()).
		WithMeta(foundation.MetaCorrelationID, corrID)

	if err := r.sender.Send(ctx, stamped); err != nil {
		r.store.Remove(corrID)
		return nil, err
	}

	return r.store.wait(corrID, timeout, ctx.Done())
}

// AskViaChannel sends msg with its reply addressed to an existing,
// long-lived channel route instead of an ephemeral one; the channel
// itself (kernel/channel) is responsible for demultiplexing responses
// back into this store by correlation id. No route is installed or torn
// down by this call.
func (r *Requester) AskViaChannel(ctx context.Context, msg foundation.Message, channelPath foundation.Path, timeout time.Duration) (*foundation.Result, error) {
	corrID := foundation.NewCorrelationID()
	r.store.Register(corrID)

	stamped := msg.
		WithMeta(foundation.MetaReplyPath, channelPath.String()).
		WithMeta(foundation.MetaCorrelationID, corrID)

	if err := r.sender.Send(ctx, stamped); err != nil {
		r.store.Remove(corrID)
		return nil, err
	}

	return r.store.wait(corrID, timeout, ctx.Done())
}

// Store exposes the requester's backing pending-response store, so a
// channel's response dispatcher can resolve entries registered here.
func (r *Requester) Store() *Store { return r.store }
