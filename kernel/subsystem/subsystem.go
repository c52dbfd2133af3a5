// Package subsystem implements the subsystem base (C17): the hierarchical
// node that owns one facet manager, builder, route registry, listener
// manager, and (optionally) a processor/scheduler pair, and structurally
// satisfies kernel/foundation.Host so the lower-level packages never need
// to import this one. Grounded on the teacher's ChildSupervisor/Supervisor
// pairing in kernel/threads/supervisor.go, generalized from a fixed set of
// named children (matchmaker/watcher/adjuster) to an open, named hierarchy
// of homogeneous subsystems.
package subsystem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nmxmxh/kernelcore/kernel/builder"
	"github.com/nmxmxh/kernelcore/kernel/contract"
	"github.com/nmxmxh/kernelcore/kernel/facet"
	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/graph"
	"github.com/nmxmxh/kernelcore/kernel/kernelutil"
	"github.com/nmxmxh/kernelcore/kernel/listener"
	"github.com/nmxmxh/kernelcore/kernel/processor"
	"github.com/nmxmxh/kernelcore/kernel/queue"
	"github.com/nmxmxh/kernelcore/kernel/route"
	"github.com/nmxmxh/kernelcore/kernel/scheduler"
)

type buildState int

const (
	notBuilt buildState = iota
	building
	built
)

// Config controls the canonical default hooks a subsystem builds with.
// Zero-value Config is a usable set of defaults.
type Config struct {
	QueueCapacity       int
	QueuePolicy         queue.OverflowPolicy
	QueuePriority       bool
	RouteCacheSize      int
	ListenerPolicy      listener.Policy
	Synchronous         bool
	SchedulerPriority   int
	SchedulerStrategy   scheduler.Strategy
	MaxMessagesPerSlice int
	GraphCacheSize      int
}

// Subsystem is one node of the hierarchy: a named, addressed unit that
// builds its own facets and either sits at the root of a scheme (no
// parent) or is a named child of another subsystem under the same scheme.
type Subsystem struct {
	mu       sync.RWMutex
	name     string
	scheme   string
	segments []string
	parent   *Subsystem
	children map[string]*Subsystem

	ctx foundation.Context
	api *foundation.API

	routes    *route.Registry
	listeners *listener.Manager
	queue     *queue.Queue

	facets    *facet.Manager
	builder   *builder.Builder
	contracts *contract.Registry
	cache     *graph.Cache

	sender     processor.Sender
	scopeCheck processor.ScopeCheckFunc
	cfg        Config

	kernelInitialized bool

	onInit    []func() error
	onDispose []func() error

	state     buildState
	buildDone chan struct{}
	buildPlan *builder.Plan
	buildErr  error

	log *kernelutil.Logger
}

// ensureProcessorContract registers the processor facet's contract into
// contracts exactly once, tolerating a registry already shared by sibling
// subsystems.
func ensureProcessorContract(contracts *contract.Registry) {
	if contracts.Has(processor.ContractName) {
		return
	}
	_ = contracts.Register(processor.Contract())
}

// NewRoot creates a top-level subsystem named equal to its own scheme,
// with a fresh dependency-graph cache of the given capacity (0 or less
// uses a capacity of 100).
func NewRoot(name string, contracts *contract.Registry, cfg Config) *Subsystem {
	ensureProcessorContract(contracts)
	cacheSize := cfg.GraphCacheSize
	if cacheSize <= 0 {
		cacheSize = 100
	}
	return newSubsystem(name, name, nil, nil, contracts, graph.NewCache(cacheSize), cfg)
}

// NewChild creates a named child of s, sharing s's contract registry and
// dependency-graph cache (spec §4.7's "pass down the same graph cache").
func (s *Subsystem) NewChild(name string, cfg Config) (*Subsystem, error) {
	s.mu.Lock()
	if _, exists := s.children[name]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: child %q", foundation.ErrDuplicate, name)
	}
	s.mu.Unlock()

	child := newSubsystem(name, s.scheme, append(append([]string(nil), s.segments...), name), s, s.contracts, s.cache, cfg)
	child.parent = s

	s.mu.Lock()
	s.children[name] = child
	s.mu.Unlock()
	return child, nil
}

func newSubsystem(name, scheme string, segments []string, parent *Subsystem, contracts *contract.Registry, cache *graph.Cache, cfg Config) *Subsystem {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 64
	}
	s := &Subsystem{
		name:      name,
		scheme:    scheme,
		segments:  segments,
		parent:    parent,
		children:  make(map[string]*Subsystem),
		ctx:       foundation.Context{},
		api:       &foundation.API{NewID: foundation.NewCorrelationID},
		routes:    route.New(cfg.RouteCacheSize),
		listeners: listener.New(cfg.ListenerPolicy, nil),
		queue:     queue.New(cfg.QueueCapacity, cfg.QueuePolicy, cfg.QueuePriority),
		facets:    facet.NewManager(),
		builder:   builder.New(contracts, cache),
		contracts: contracts,
		cache:     cache,
		cfg:       cfg,
		log:       kernelutil.DefaultLogger("subsystem." + name),
	}
	s.builder.SetDefaultHooks(s.defaultHooks())
	return s
}

// --- foundation.Host ---

func (s *Subsystem) Name() string { return s.name }

func (s *Subsystem) FullPath() foundation.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return foundation.Path{Scheme: s.scheme, Segments: append([]string(nil), s.segments...)}
}

func (s *Subsystem) Context() foundation.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// SetContext replaces the subsystem's own build context (merged with
// whatever extraCtx a future Build call supplies).
func (s *Subsystem) SetContext(ctx foundation.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

// RegisterRoute installs a route, requiring the processor facet to already
// be built — without a processor, a registered route could never be
// dispatched.
func (s *Subsystem) RegisterRoute(pattern string, handler foundation.HandlerFunc, opts foundation.RouteOptions) error {
	if !s.facets.Has("processor") {
		return foundation.ErrMissingFacet
	}
	return s.routes.Register(pattern, handler, opts)
}

// UnregisterRoute removes a previously registered route.
func (s *Subsystem) UnregisterRoute(pattern string) error {
	if !s.facets.Has("processor") {
		return foundation.ErrMissingFacet
	}
	return s.routes.Unregister(pattern)
}

// Find resolves an installed facet by kind or attach alias.
func (s *Subsystem) Find(kind string) (foundation.Facet, bool) {
	return s.facets.Get(kind)
}

// IsRoot reports whether this subsystem has no parent.
func (s *Subsystem) IsRoot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parent == nil
}

// Parent returns the owning subsystem as a foundation.Host, or a true nil
// interface (never a nil-pointer-in-interface) at the root.
func (s *Subsystem) Parent() foundation.Host {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.parent == nil {
		return nil
	}
	return s.parent
}

// --- hierarchy ---

// GetParent returns the concrete parent subsystem, or nil at the root.
func (s *Subsystem) GetParent() *Subsystem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parent
}

// SetParent reparents s; used only by tests and advanced composition —
// normal hierarchy construction goes through NewChild.
func (s *Subsystem) SetParent(parent *Subsystem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parent = parent
}

// GetRoot walks the parent chain to the top-level subsystem.
func (s *Subsystem) GetRoot() *Subsystem {
	cur := s
	for {
		p := cur.GetParent()
		if p == nil {
			return cur
		}
		cur = p
	}
}

// GetNameString returns the subsystem's own name.
func (s *Subsystem) GetNameString() string { return s.name }

// Child resolves a direct child by name.
func (s *Subsystem) Child(name string) (*Subsystem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.children[name]
	return c, ok
}

// Children returns every direct child subsystem.
func (s *Subsystem) Children() []*Subsystem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Subsystem, 0, len(s.children))
	for _, c := range s.children {
		out = append(out, c)
	}
	return out
}

// Capabilities lists the kinds of every currently installed facet.
func (s *Subsystem) Capabilities() []string {
	return s.facets.InstalledKinds()
}

// --- composition surface ---

// Use appends a hook to this subsystem's build, invalidating any cached
// plan.
func (s *Subsystem) Use(hook foundation.Hook) {
	s.builder.AddHook(hook)
}

// OnInit registers a callback run once, after Build's facet installation
// succeeds.
func (s *Subsystem) OnInit(cb func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInit = append(s.onInit, cb)
}

// OnDispose registers a callback run during Dispose, before facets are
// disposed.
func (s *Subsystem) OnDispose(cb func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDispose = append(s.onDispose, cb)
}

// SetSender configures the Sender the processor facet uses to deliver
// reply messages back through the root router.
func (s *Subsystem) SetSender(sender processor.Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// SetScopeCheck configures the function the processor facet consults for
// routes declaring requiredScopes metadata.
func (s *Subsystem) SetScopeCheck(fn processor.ScopeCheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopeCheck = fn
}

// MarkKernelServicesReady records that kernel identity/services have
// already been bootstrapped by the owning MessageSystem, so Build strips
// the well-known "kernelServices" dependency per spec §4.7 step 6.
func (s *Subsystem) MarkKernelServicesReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kernelInitialized = true
}

// Routes exposes the subsystem's own route registry for direct matching
// by a root router (kernel/system) without going through RegisterRoute's
// processor-facet gate.
func (s *Subsystem) Routes() *route.Registry { return s.routes }

// Listeners exposes the subsystem's own listener manager, so an api.Events
// surface can be built directly atop it for local subscriptions.
func (s *Subsystem) Listeners() *listener.Manager { return s.listeners }

// Queue exposes the subsystem's own bounded queue for inspection (queue
// depth, overflow stats) without going through a facet lookup.
func (s *Subsystem) Queue() *queue.Queue { return s.queue }

// --- lifecycle ---

// Build resolves and installs the subsystem's facets. It is idempotent: a
// call made while a build is already in flight blocks for and returns that
// build's outcome; a call made after a prior build has already completed
// returns the cached outcome without doing any work.
func (s *Subsystem) Build(extraCtx foundation.Context) (*builder.Plan, error) {
	s.mu.Lock()
	switch s.state {
	case built:
		plan, err := s.buildPlan, s.buildErr
		s.mu.Unlock()
		return plan, err
	case building:
		done := s.buildDone
		s.mu.Unlock()
		<-done
		s.mu.Lock()
		plan, err := s.buildPlan, s.buildErr
		s.mu.Unlock()
		return plan, err
	}
	s.state = building
	s.buildDone = make(chan struct{})
	kernelReady := s.kernelInitialized
	s.mu.Unlock()

	plan, err := s.builder.Verify(s, extraCtx, s.api, kernelReady)
	if err == nil {
		err = builder.Execute(s.facets, plan, s.api, s)
	}
	if err == nil {
		s.mu.RLock()
		callbacks := append([]func() error(nil), s.onInit...)
		s.mu.RUnlock()
		for _, cb := range callbacks {
			if cerr := cb(); cerr != nil {
				err = cerr
				break
			}
		}
	}

	// Step 5: recursively Build every child present once this subsystem's
	// own facets and onInit callbacks have succeeded, root-to-leaves,
	// sharing the same graph cache (already
	// wired in NewChild). A child failure aborts the cascade but does not
	// roll back the facets this subsystem already installed.
	if err == nil {
		s.mu.RLock()
		children := make([]*Subsystem, 0, len(s.children))
		for _, c := range s.children {
			children = append(children, c)
		}
		s.mu.RUnlock()
		for _, c := range children {
			if _, cerr := c.Build(extraCtx); cerr != nil {
				err = cerr
				break
			}
		}
	}

	if err != nil {
		s.log.Error("build failed", kernelutil.Err(err))
	} else {
		s.log.Info("build complete", kernelutil.Any("facets", s.facets.InstalledKinds()))
	}

	s.mu.Lock()
	s.buildPlan, s.buildErr = plan, err
	s.state = built
	close(s.buildDone)
	s.mu.Unlock()
	return plan, err
}

// Dispose tears the subsystem down leaves-first: children are disposed
// before self, onDispose callbacks run, then every installed facet is
// disposed in reverse install order. Disposal is best-effort: every error
// is collected and the aggregate returned, but every step is attempted
// regardless of earlier failures. After Dispose, the subsystem may be
// rebuilt via Build.
func (s *Subsystem) Dispose() error {
	s.mu.Lock()
	children := make([]*Subsystem, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, c)
	}
	callbacks := append([]func() error(nil), s.onDispose...)
	s.mu.Unlock()

	var errs []error
	for _, c := range children {
		if err := c.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(callbacks) - 1; i >= 0; i-- {
		if err := callbacks[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.facets.DisposeAll(); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	s.state = notBuilt
	s.buildPlan, s.buildErr = nil, nil
	s.mu.Unlock()

	if len(errs) == 0 {
		return nil
	}
	joined := errors.Join(errs...)
	s.log.Error("dispose had errors", kernelutil.Err(joined))
	return joined
}

// --- message dispatch ---

// Accept hands msg to the processor facet (queuing it, or processing it
// inline for an immediate/synchronous message). Requires the processor
// facet to be installed.
func (s *Subsystem) Accept(ctx context.Context, msg foundation.Message) (processor.AcceptOutcome, error) {
	f, ok := s.facets.Get("processor")
	if !ok {
		return processor.AcceptOutcome{}, foundation.ErrMissingFacet
	}
	return f.(*processor.Facet).Accept(ctx, msg)
}

// Process drains up to timeSliceMs of queued work via the scheduler
// facet. If no scheduler facet is installed, Process is a no-op returning
// a zero Outcome and no error, per spec §4.17.
func (s *Subsystem) Process(ctx context.Context, timeSliceMs int) scheduler.Outcome {
	f, ok := s.facets.Get("scheduler")
	if !ok {
		return scheduler.Outcome{}
	}
	return f.(*scheduler.Facet).Process(ctx, timeSliceMs)
}

// Pause stops the scheduler facet from draining work; a no-op if absent.
func (s *Subsystem) Pause() {
	if f, ok := s.facets.Get("scheduler"); ok {
		f.(*scheduler.Facet).Pause()
	}
}

// Resume re-enables draining on the scheduler facet; a no-op if absent.
func (s *Subsystem) Resume() {
	if f, ok := s.facets.Get("scheduler"); ok {
		f.(*scheduler.Facet).Resume()
	}
}

// SchedulerPriority satisfies scheduler.Processable for the global
// scheduler's priority/weighted partition strategies.
func (s *Subsystem) SchedulerPriority() int { return s.cfg.SchedulerPriority }
