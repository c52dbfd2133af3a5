// Package builder implements the two-phase subsystem builder (C7): a pure
// Verify phase that resolves hooks into an installable Plan, and an
// Execute phase that installs that plan's facets via kernel/facet. It
// depends only on kernel/foundation's Host abstraction, never on the
// subsystem package itself, so subsystem can depend on builder without a
// cycle.
package builder

import (
	"fmt"
	"sync"

	"github.com/nmxmxh/kernelcore/kernel/contract"
	"github.com/nmxmxh/kernelcore/kernel/facet"
	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/graph"
)

// kernelServicesDep is the well-known dependency name stripped once the
// root MessageSystem reports kernel identity is already bootstrapped (spec
// step 4.7.6).
const kernelServicesDep = "kernelServices"

// Plan is the immutable result of Verify: a resolved context, an
// installation order, and the facets ready to install in that order.
type Plan struct {
	ResolvedCtx  foundation.Context
	OrderedKinds []string
	FacetsByKind map[string]foundation.Facet
}

// Builder owns one subsystem's hook list and caches the last resolved
// plan, invalidated on any hook mutation.
type Builder struct {
	mu           sync.Mutex
	defaultHooks []foundation.Hook
	hooks        []foundation.Hook
	contracts    *contract.Registry
	cache        *graph.Cache

	lastCtxKey string
	lastPlan   *Plan
}

// New creates a Builder backed by the given contract registry and
// dependency-graph cache (shared across a hierarchy, per spec §4.7's
// "pass down the same graph cache via ctx").
func New(contracts *contract.Registry, cache *graph.Cache) *Builder {
	return &Builder{contracts: contracts, cache: cache}
}

// SetDefaultHooks replaces the builder's default hook list and
// invalidates the cached plan.
func (b *Builder) SetDefaultHooks(hooks []foundation.Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defaultHooks = append([]foundation.Hook(nil), hooks...)
	b.lastPlan = nil
}

// AddHook appends a hook to the subsystem-specific hook list and
// invalidates the cached plan.
func (b *Builder) AddHook(h foundation.Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, h)
	b.lastPlan = nil
}

// Invalidate drops the cached plan unconditionally.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastPlan = nil
}

// Verify resolves the builder's hooks against host's current context
// merged with extraCtx, producing an installable Plan. It performs no
// installation; it is safe to call repeatedly and concurrently with other
// Verify calls.
func (b *Builder) Verify(host foundation.Host, extraCtx foundation.Context, api *foundation.API, kernelInitialized bool) (*Plan, error) {
	b.mu.Lock()
	hooks := append(append([]foundation.Hook(nil), b.defaultHooks...), b.hooks...)
	b.mu.Unlock()

	ctx := host.Context().Merge(extraCtx)
	ctxKey := fmt.Sprintf("%v", ctx)

	b.mu.Lock()
	if b.lastPlan != nil && b.lastCtxKey == ctxKey {
		cached := b.lastPlan
		b.mu.Unlock()
		return cached, nil
	}
	b.mu.Unlock()

	// Pass 1: validate kinds, resolve duplicate/overwrite at hook level.
	byKind := make(map[string]foundation.Hook, len(hooks))
	order := make([]string, 0, len(hooks))
	for _, h := range hooks {
		if h.Kind == "" {
			return nil, fmt.Errorf("hook has empty kind")
		}
		if existing, dup := byKind[h.Kind]; dup {
			if !existing.Overwrite && !h.Overwrite {
				return nil, fmt.Errorf("%w: hook kind %q", foundation.ErrDuplicate, h.Kind)
			}
		} else {
			order = append(order, h.Kind)
		}
		byKind[h.Kind] = h
	}

	// Pass 2: invoke each hook factory.
	facetsByKind := make(map[string]foundation.Facet, len(order))
	requiredByKind := make(map[string][]string, len(order))
	for _, kind := range order {
		h := byKind[kind]
		f, err := h.Fn(ctx, api, host)
		if err != nil {
			return nil, fmt.Errorf("build facet %q: %w", kind, err)
		}
		if f.Kind() != h.Kind {
			return nil, fmt.Errorf("hook %q produced facet with kind %q", h.Kind, f.Kind())
		}
		if existing, dup := facetsByKind[kind]; dup {
			overwrite := h.Overwrite
			if ow, ok := existing.(foundation.Overwritable); ok && ow.AllowOverwrite() {
				overwrite = true
			}
			if nf, ok := f.(foundation.Overwritable); ok && nf.AllowOverwrite() {
				overwrite = true
			}
			if !overwrite {
				return nil, fmt.Errorf("%w: facet kind %q", foundation.ErrDuplicate, kind)
			}
		}
		facetsByKind[kind] = f

		required := append([]string(nil), h.Required...)
		if dep, ok := f.(foundation.Dependent); ok {
			required = append(required, dep.Dependencies()...)
		}
		requiredByKind[kind] = required
	}

	// Step 6: strip the special kernelServices dependency once the kernel
	// is already bootstrapped.
	if kernelInitialized {
		for kind, deps := range requiredByKind {
			filtered := deps[:0]
			for _, d := range deps {
				if d != kernelServicesDep {
					filtered = append(filtered, d)
				}
			}
			requiredByKind[kind] = filtered
		}
	}

	// Step 5: dependency existence check.
	for kind, deps := range requiredByKind {
		for _, dep := range deps {
			if _, ok := facetsByKind[dep]; !ok {
				return nil, fmt.Errorf("%w: facet %q requires %q", foundation.ErrMissingDep, kind, dep)
			}
		}
	}

	// Step 7: contract enforcement.
	for kind, f := range facetsByKind {
		cf, ok := f.(foundation.Contractual)
		if !ok {
			continue
		}
		name := cf.ContractName()
		if name == "" {
			continue
		}
		if err := b.contracts.Enforce(name, ctx, api, host, f); err != nil {
			return nil, fmt.Errorf("facet %q: %w", kind, err)
		}
	}

	// Step 8/9: resolve install order via the dependency graph cache.
	cacheKey := graph.SortedKey(order)
	if entry, ok := b.cache.Get(cacheKey); ok {
		if !entry.Valid {
			return nil, fmt.Errorf("%w: %s", foundation.ErrCycle, entry.Err)
		}
		plan := &Plan{ResolvedCtx: ctx, OrderedKinds: entry.Order, FacetsByKind: facetsByKind}
		b.storePlan(ctxKey, plan)
		return plan, nil
	}

	edges := make(map[string][]string)
	for kind, deps := range requiredByKind {
		for _, dep := range deps {
			edges[dep] = append(edges[dep], kind)
		}
	}
	sortedOrder, err := graph.TopoSort(order, edges)
	if err != nil {
		b.cache.Set(cacheKey, graph.Entry{Valid: false, Err: err.Error()})
		return nil, err
	}
	b.cache.Set(cacheKey, graph.Entry{Valid: true, Order: sortedOrder})

	plan := &Plan{ResolvedCtx: ctx, OrderedKinds: sortedOrder, FacetsByKind: facetsByKind}
	b.storePlan(ctxKey, plan)
	return plan, nil
}

func (b *Builder) storePlan(ctxKey string, plan *Plan) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastCtxKey = ctxKey
	b.lastPlan = plan
}

// Execute installs every kind in plan.OrderedKinds not already present in
// manager, via a single transactional AddMany call.
func Execute(manager *facet.Manager, plan *Plan, api *foundation.API, host foundation.Host) error {
	var toAdd []string
	for _, kind := range plan.OrderedKinds {
		if !manager.Has(kind) {
			toAdd = append(toAdd, kind)
		}
	}
	if len(toAdd) == 0 {
		return nil
	}

	return manager.AddMany(toAdd, plan.FacetsByKind, facet.AddOptions{
		Init: true, Attach: true, Ctx: plan.ResolvedCtx, API: api, Host: host,
	})
}
