package identity

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

// Principal pairs a PKR with the mutable metadata bag the registry keeps
// about it (currently just "role", but left open for future keys).
type Principal struct {
	PKR  PKR
	Meta map[string]interface{}
}

// CreateOptions configures a new principal's PKR.
type CreateOptions struct {
	PublicKey []byte
	Minter    string
}

// Registry is the process-wide (or test-scoped) mutex-guarded set of
// known principals, grounded on the teacher's IdentitySupervisor DID map.
type Registry struct {
	mu         sync.RWMutex
	principals map[string]*Principal
	hasKernel  bool
}

// NewRegistry creates an empty registry. When bootstrapKernel is true, a
// single kernel principal is created and its Identity returned as the
// second value, mirroring messageSystem.identity in spec §4.16.
func NewRegistry(bootstrapKernel bool) (*Registry, *Identity) {
	r := &Registry{principals: make(map[string]*Principal)}
	if !bootstrapKernel {
		return r, nil
	}
	pkr, err := r.CreatePrincipal(KindKernel, CreateOptions{PublicKey: []byte("kernel")})
	if err != nil {
		return r, nil
	}
	return r, NewIdentity(pkr, r, nil, nil)
}

// CreatePrincipal mints a new principal of the given kind. At most one
// principal of kind KindKernel may ever exist in a registry.
func (r *Registry) CreatePrincipal(kind PrincipalKind, opts CreateOptions) (PKR, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == KindKernel && r.hasKernel {
		return PKR{}, fmt.Errorf("%w: a kernel principal already exists", foundation.ErrDuplicate)
	}

	pkr, err := NewPKR(uuid.NewString(), kind, opts.PublicKey, opts.Minter, time.Time{})
	if err != nil {
		return PKR{}, err
	}

	r.principals[pkr.UUID] = &Principal{PKR: pkr, Meta: map[string]interface{}{}}
	if kind == KindKernel {
		r.hasKernel = true
	}
	return pkr, nil
}

// ResolvePKR returns the registry's own record for a PKR (its "private
// handle" in spec terms — the registry-side Principal, as opposed to the
// PKR value callers pass around).
func (r *Registry) ResolvePKR(pkr PKR) (*Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.principals[pkr.UUID]
	return p, ok
}

// Get looks up a principal by uuid.
func (r *Registry) Get(uuid string) (*Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.principals[uuid]
	return p, ok
}

// Has reports whether uuid names a known principal.
func (r *Registry) Has(uuid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.principals[uuid]
	return ok
}

// Delete removes a principal. Deleting the kernel principal clears the
// "has kernel" invariant so a new one may be minted.
func (r *Registry) Delete(uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.principals[uuid]; ok && p.PKR.Kind == KindKernel {
		r.hasKernel = false
	}
	delete(r.principals, uuid)
}

// Clear removes every principal.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principals = make(map[string]*Principal)
	r.hasKernel = false
}

// GetRole returns the role metadata for pkr, "" if unset or unknown.
func (r *Registry) GetRole(pkr PKR) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.principals[pkr.UUID]
	if !ok {
		return ""
	}
	role, _ := p.Meta["role"].(string)
	return role
}

// SetRole sets the role metadata for pkr. An empty role is rejected
// without mutation, per the round-trip testable property in spec §8.
func (r *Registry) SetRole(pkr PKR, role string) error {
	if role == "" {
		return fmt.Errorf("identity: role must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.principals[pkr.UUID]
	if !ok {
		return foundation.ErrMissingFacet
	}
	p.Meta["role"] = role
	return nil
}
