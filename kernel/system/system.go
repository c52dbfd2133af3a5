// Package system implements the message system (C16): the root registry
// of top-level subsystems, addressed routing with child descent, and the
// kernel principal/identity bootstrap and global scheduler mount every
// subsystem hierarchy needs exactly one of. Grounded on the teacher's
// kernel/threads/supervisor.go NewRootSupervisor, generalized from a fixed
// matchmaker/watcher/adjuster child set to an open, scheme-keyed registry
// of top-level subsystems.
package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/identity"
	"github.com/nmxmxh/kernelcore/kernel/kernelutil"
	"github.com/nmxmxh/kernelcore/kernel/scheduler"
	"github.com/nmxmxh/kernelcore/kernel/subsystem"
)

// markerSegments are the well-known path segments (reply routes, channel
// routes, and the three message kinds) that end child-name descent: a
// segment matching one of these is never itself a child subsystem name.
var markerSegments = map[string]bool{
	"query":    true,
	"command":  true,
	"event":    true,
	"resource": true,
	"reply":    true,
	"channels": true,
}

// MessageSystem is the root of a subsystem hierarchy: it owns the
// scheme-keyed registry of top-level subsystems, the shared identity
// registry (with the one kernel principal bootstrapped at construction),
// and the global scheduler every top-level subsystem shares a Tick with.
type MessageSystem struct {
	mu    sync.RWMutex
	roots map[string]*subsystem.Subsystem

	identities *identity.Registry
	kernel     *identity.Identity

	global *scheduler.Global
	log    *kernelutil.Logger
}

// New creates an empty message system: no top-level subsystems registered
// yet, a fresh identity registry with its kernel principal already minted,
// and a global scheduler using the given partition strategy.
func New(strategy scheduler.Strategy, weights map[string]float64, maxCarryMs int) *MessageSystem {
	registry, kernelIdentity := identity.NewRegistry(true)

	ms := &MessageSystem{
		roots:      make(map[string]*subsystem.Subsystem),
		identities: registry,
		global:     scheduler.NewGlobal(strategy, weights, maxCarryMs),
		log:        kernelutil.DefaultLogger("system"),
	}

	// Rebind the kernel identity to sendProtected now that ms exists — the
	// registry mints the principal before the router that can deliver on
	// its behalf is available.
	if kernelIdentity != nil {
		ms.kernel = identity.NewIdentity(kernelIdentity.PKR(), registry, nil, ms.sendProtected)
	}
	return ms
}

// Identities exposes the shared principal registry, so callers can mint
// principals for the subsystems they register.
func (ms *MessageSystem) Identities() *identity.Registry { return ms.identities }

// Kernel returns the bootstrapped kernel identity.
func (ms *MessageSystem) Kernel() *identity.Identity { return ms.kernel }

// Register adds a top-level subsystem, keyed by its own scheme, and wires
// it to deliver replies and cross-subsystem sends through this message
// system. Fails with foundation.ErrDuplicate if the scheme is already
// registered, or a plain error if s is not itself a root.
func (ms *MessageSystem) Register(s *subsystem.Subsystem) error {
	if !s.IsRoot() {
		return fmt.Errorf("system: %q is not a top-level subsystem", s.Name())
	}
	scheme := s.FullPath().Scheme

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, exists := ms.roots[scheme]; exists {
		return fmt.Errorf("%w: scheme %q", foundation.ErrDuplicate, scheme)
	}
	ms.roots[scheme] = s
	s.SetSender(ms)
	ms.log.Info("subsystem registered", kernelutil.String("scheme", scheme))
	return nil
}

// Unregister removes a top-level subsystem by scheme. Returns
// foundation.ErrNoRoute if the scheme is unknown.
func (ms *MessageSystem) Unregister(scheme string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.roots[scheme]; !ok {
		return foundation.ErrNoRoute
	}
	delete(ms.roots, scheme)
	ms.log.Info("subsystem unregistered", kernelutil.String("scheme", scheme))
	return nil
}

// Find returns the registered top-level subsystem for scheme.
func (ms *MessageSystem) Find(scheme string) (*subsystem.Subsystem, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	s, ok := ms.roots[scheme]
	return s, ok
}

// resolve walks msg.Path from its top-level subsystem down through any
// child segments that name a registered child, stopping at the first
// segment that is a marker or names no child — per spec §4.16's "descend
// if path has a child segment matching a registered child name before a
// resource/query marker".
func (ms *MessageSystem) resolve(path foundation.Path) (*subsystem.Subsystem, bool) {
	ms.mu.RLock()
	root, ok := ms.roots[path.Scheme]
	ms.mu.RUnlock()
	if !ok {
		return nil, false
	}

	cur := root
	for _, seg := range path.Segments {
		if markerSegments[seg] {
			break
		}
		child, ok := cur.Child(seg)
		if !ok {
			break
		}
		cur = child
	}
	return cur, true
}

// Route resolves msg's destination subsystem and hands it the message
// unmodified — a subsystem's own routes are registered under its full
// canonical path, so no segment stripping is needed once the destination
// node is found. Returns foundation.ErrNoRoute if no top-level subsystem
// claims msg.Path.Scheme.
func (ms *MessageSystem) Route(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
	target, ok := ms.resolve(msg.Path)
	if !ok {
		return nil, foundation.ErrNoRoute
	}

	outcome, err := target.Accept(ctx, msg)
	if err != nil {
		return nil, err
	}
	if outcome.Result != nil {
		return outcome.Result, nil
	}
	return foundation.Ok(nil), nil
}

// Send satisfies processor.Sender, request.Sender, and api.Sender: it is
// the root delivery function every subsystem's SetSender is wired to on
// Register, so a reply, a fresh Ask, or an Events.Publish call all reach
// their destination subsystem the same way.
func (ms *MessageSystem) Send(ctx context.Context, msg foundation.Message) error {
	_, err := ms.Route(ctx, msg)
	return err
}

// sendProtected backs the kernel identity's SendProtected capability: it
// stamps the sender's PKR onto the message and routes it exactly like any
// other send, so a caller that signs with a capability object gets the
// same delivery guarantees as a raw Send.
func (ms *MessageSystem) sendProtected(ctx context.Context, sender identity.PKR, path foundation.Path, msg foundation.Message, opts identity.SendOptions) (*foundation.Result, error) {
	stamped := msg.WithMeta(foundation.MetaSenderPKR, sender.UUID)
	stamped.Path = path
	return ms.Route(ctx, stamped)
}

// Tick partitions totalSliceMs across every registered top-level
// subsystem via the global scheduler and calls Process on each; per spec
// §4.11 there is no built-in loop, the caller decides the cadence.
func (ms *MessageSystem) Tick(ctx context.Context, totalSliceMs int) map[string]scheduler.Outcome {
	ms.mu.RLock()
	subsystems := make([]scheduler.Processable, 0, len(ms.roots))
	for _, s := range ms.roots {
		subsystems = append(subsystems, s)
	}
	ms.mu.RUnlock()

	return ms.global.Tick(ctx, totalSliceMs, subsystems)
}

// Schemes lists every currently registered top-level scheme.
func (ms *MessageSystem) Schemes() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]string, 0, len(ms.roots))
	for scheme := range ms.roots {
		out = append(out, scheme)
	}
	return out
}
