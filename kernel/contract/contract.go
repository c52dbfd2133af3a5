// Package contract implements the facet contract registry (C4): named
// specifications of the methods/properties a facet must provide, enforced
// once per facet during Verify.
package contract

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

// Contract describes what a facet must satisfy to carry a given
// ContractName. Check reports the names of any missing required items
// (methods/properties) via explicit capability predicates rather than
// reflection, per the kernel's Design Notes. Validate, if set, runs after
// Check passes and can reject a facet for any other reason.
type Contract struct {
	Name                string
	RequiredMethods     []string
	RequiredProperties  []string
	Check               func(facet foundation.Facet) []string
	Validate            func(ctx foundation.Context, api *foundation.API, host foundation.Host, facet foundation.Facet) error
}

// Registry is a process-scoped, name-keyed set of contracts.
type Registry struct {
	mu        sync.RWMutex
	contracts map[string]Contract
}

// NewRegistry creates an empty contract registry. Tests should use this
// instead of the process-wide DefaultRegistry to avoid cross-test leakage.
func NewRegistry() *Registry {
	return &Registry{contracts: make(map[string]Contract)}
}

var defaultOnce sync.Once
var defaultRegistry *Registry

// DefaultRegistry returns the process-wide contract registry, mirroring the
// teacher's pattern of a single default registry with an injectable
// alternative for tests.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Register adds a contract, failing with foundation.ErrDuplicate if a
// contract with the same name already exists.
func (r *Registry) Register(c Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.contracts[c.Name]; exists {
		return fmt.Errorf("%w: contract %q already registered", foundation.ErrDuplicate, c.Name)
	}
	r.contracts[c.Name] = c
	return nil
}

// Has reports whether a contract with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.contracts[name]
	return ok
}

// Get retrieves a contract by name.
func (r *Registry) Get(name string) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[name]
	return c, ok
}

// Enforce validates a facet against the named contract: every required
// method/property must be satisfiable (per Check), then Validate (if any)
// runs. Failure returns foundation.ErrContract listing all missing items.
func (r *Registry) Enforce(name string, ctx foundation.Context, api *foundation.API, host foundation.Host, facet foundation.Facet) error {
	c, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: contract %q not registered", foundation.ErrContract, name)
	}

	var missing []string
	if c.Check != nil {
		missing = c.Check(facet)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %q missing %s", foundation.ErrContract, name, strings.Join(missing, ", "))
	}

	if c.Validate != nil {
		if err := c.Validate(ctx, api, host, facet); err != nil {
			return fmt.Errorf("%w: %q: %s", foundation.ErrContract, name, err.Error())
		}
	}
	return nil
}
