// Package processor implements the queue/processor facet (C9): the
// Accept/ProcessMessage/ProcessTick/ProcessImmediately pipeline that
// drains a subsystem's queue, matches routes, fans out to listeners, and
// replies through the root router when a message carries a reply path.
package processor

import (
	"context"
	"fmt"

	"github.com/nmxmxh/kernelcore/kernel/contract"
	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/kernelutil"
	"github.com/nmxmxh/kernelcore/kernel/listener"
	"github.com/nmxmxh/kernelcore/kernel/queue"
	"github.com/nmxmxh/kernelcore/kernel/route"
)

// ContractName is the name under which the processor contract is
// registered; S5 in spec §8 exercises a facet that declares this contract
// without actually satisfying it.
const ContractName = "processor"

// ticker is the minimal method set the "processor" contract requires —
// checked by explicit type assertion, never by reflection.
type ticker interface {
	ProcessTick(ctx context.Context) (*foundation.Result, bool, error)
}

// Contract describes the processor contract: any facet claiming it must
// implement ProcessTick with this exact signature.
func Contract() contract.Contract {
	return contract.Contract{
		Name:            ContractName,
		RequiredMethods: []string{"ProcessTick"},
		Check: func(f foundation.Facet) []string {
			if _, ok := f.(ticker); !ok {
				return []string{"ProcessTick"}
			}
			return nil
		},
	}
}

// Sender delivers a message via the root router; the processor needs it
// only to route response messages back to a caller's reply path.
type Sender interface {
	Send(ctx context.Context, msg foundation.Message) error
}

// ScopeCheckFunc consults the identity system to decide whether a sender
// satisfies a route's required scopes.
type ScopeCheckFunc func(senderPKR string, requiredScopes []string) bool

// AcceptOutcome is the result of Accept: either the message was queued
// (Queued=true) or processed synchronously (Result set).
type AcceptOutcome struct {
	Accepted bool
	Queued   bool
	Dropped  interface{}
	Result   *foundation.Result
}

// Facet is the C9 processor: Kind() is always "processor".
type Facet struct {
	routes      *route.Registry
	listeners   *listener.Manager
	queue       *queue.Queue
	synchronous bool
	sender      Sender
	scopeCheck  ScopeCheckFunc
	log         *kernelutil.Logger
}

// New creates a processor facet. synchronous=true makes every Accept call
// bypass the queue entirely, per the confirmed sync-adapter precedence in
// spec §9: when a subsystem has both a synchronous facet and a queue, the
// synchronous facet wins and the queue is never touched.
func New(routes *route.Registry, listeners *listener.Manager, q *queue.Queue, synchronous bool, sender Sender, scopeCheck ScopeCheckFunc) *Facet {
	return &Facet{
		routes:      routes,
		listeners:   listeners,
		queue:       q,
		synchronous: synchronous,
		sender:      sender,
		scopeCheck:  scopeCheck,
		log:         kernelutil.DefaultLogger("processor"),
	}
}

// Kind satisfies foundation.Facet.
func (f *Facet) Kind() string { return "processor" }

// ContractName satisfies foundation.Contractual: every processor facet,
// including the default one, is checked against its own contract during
// Verify.
func (f *Facet) ContractName() string { return ContractName }

// Accept implements the pipeline in spec §4.9: messages flagged
// processImmediately, or any message on a synchronous subsystem, are
// processed inline; everything else is enqueued.
func (f *Facet) Accept(ctx context.Context, msg foundation.Message) (AcceptOutcome, error) {
	if msg.Meta.ProcessImmediately() || f.synchronous {
		res, err := f.ProcessImmediately(ctx, msg)
		return AcceptOutcome{Accepted: true, Result: res}, err
	}

	accepted, dropped, err := f.queue.Enqueue(msg, msg.Meta.Priority())
	if err != nil {
		return AcceptOutcome{Accepted: false}, err
	}
	if !accepted {
		return AcceptOutcome{Accepted: false}, nil
	}
	return AcceptOutcome{Accepted: true, Queued: true, Dropped: dropped}, nil
}

// ProcessImmediately processes msg inline, bypassing the queue.
func (f *Facet) ProcessImmediately(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
	return f.ProcessMessage(ctx, msg)
}

// ProcessMessage matches msg's route, applies scope enforcement, dispatches
// to the handler (or fans out to listeners only, for events), and replies
// through the reply path if present.
func (f *Facet) ProcessMessage(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
	match, ok := f.routes.Match(msg.Path)

	if msg.Kind == foundation.KindEvent {
		f.listeners.Emit(ctx, msg)
		if !ok {
			return foundation.Ok(nil), nil
		}
	}

	if !ok {
		return nil, foundation.ErrNoRoute
	}

	if scopes, hasScopes := match.Entry.Options.Metadata["requiredScopes"].([]string); hasScopes && len(scopes) > 0 {
		if f.scopeCheck == nil || !f.scopeCheck(msg.Meta.SenderPKR(), scopes) {
			return foundation.Fail(foundation.ErrPermission), nil
		}
	}

	if msg.Kind == foundation.KindEvent {
		return foundation.Ok(nil), nil
	}

	handlerMsg := msg
	if len(match.Params) > 0 {
		handlerMsg = msg.WithMeta("params", match.Params)
	}

	result, err := match.Entry.Handler(ctx, handlerMsg)
	if err != nil {
		result = foundation.Fail(err)
	}
	if result == nil {
		result = foundation.Ok(nil)
	}

	f.listeners.Emit(ctx, msg.WithMeta("postHandler", true))

	if replyPath := msg.Meta.ReplyPath(); replyPath != "" && f.sender != nil {
		dest, perr := foundation.ParsePath(replyPath)
		if perr == nil {
			resp := foundation.NewMessage(dest, foundation.KindResponse, result).
				WithMeta(foundation.MetaCorrelationID, msg.Meta.CorrelationID()).
				WithMeta(foundation.MetaProcessImmediately, true)
			if tid := msg.Meta.TraceID(); tid != "" {
				resp = resp.WithMeta(foundation.MetaTraceID, tid)
			}
			if serr := f.sender.Send(ctx, resp); serr != nil {
				f.log.Error("failed to deliver response", kernelutil.String("replyPath", replyPath), kernelutil.Err(serr))
			}
		}
	}

	return result, nil
}

// ProcessTick drains at most one message from the queue and processes it,
// satisfying the scheduler.Ticker contract.
func (f *Facet) ProcessTick(ctx context.Context) (*foundation.Result, bool, error) {
	v, ok := f.queue.Dequeue()
	if !ok {
		return nil, false, nil
	}
	msg, ok := v.(foundation.Message)
	if !ok {
		return nil, true, fmt.Errorf("processor: queue item was not a foundation.Message")
	}
	res, err := f.ProcessMessage(ctx, msg)
	return res, true, err
}
