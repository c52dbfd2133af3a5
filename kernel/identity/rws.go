package identity

import "sync"

// RWS (ReaderWriterSet) controls read/write/grant access to one resource.
// Owner and the kernel principal always satisfy every check; every other
// caller needs CanGrant to mutate the set.
type RWS struct {
	mu       sync.Mutex
	Owner    string // owner PKR uuid
	readers  map[string]bool
	writers  map[string]bool
	granters map[string]bool
}

// NewRWS creates an RWS owned by the given PKR uuid.
func NewRWS(owner string) *RWS {
	return &RWS{
		Owner:    owner,
		readers:  map[string]bool{},
		writers:  map[string]bool{},
		granters: map[string]bool{},
	}
}

func (rws *RWS) isOwnerOrKernel(pkr PKR) bool {
	return pkr.UUID == rws.Owner || pkr.Kind == KindKernel
}

// CanRead reports whether pkr may read the resource.
func (rws *RWS) CanRead(pkr PKR) bool {
	if !pkr.IsValid("") {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	return rws.isOwnerOrKernel(pkr) || rws.readers[pkr.UUID]
}

// CanWrite reports whether pkr may write the resource.
func (rws *RWS) CanWrite(pkr PKR) bool {
	if !pkr.IsValid("") {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	return rws.isOwnerOrKernel(pkr) || rws.writers[pkr.UUID]
}

// CanGrant reports whether pkr may mutate this RWS's membership.
func (rws *RWS) CanGrant(pkr PKR) bool {
	if !pkr.IsValid("") {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	return rws.isOwnerOrKernel(pkr) || rws.granters[pkr.UUID]
}

// AddReader grants read access to target, if granter is authorized.
func (rws *RWS) AddReader(granter, target PKR) bool {
	if !rws.CanGrant(granter) || !target.IsValid("") {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	rws.readers[target.UUID] = true
	return true
}

// AddWriter grants write access to target, if granter is authorized.
func (rws *RWS) AddWriter(granter, target PKR) bool {
	if !rws.CanGrant(granter) || !target.IsValid("") {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	rws.writers[target.UUID] = true
	return true
}

// AddGranter grants grant-authority to target, if granter is authorized.
func (rws *RWS) AddGranter(granter, target PKR) bool {
	if !rws.CanGrant(granter) || !target.IsValid("") {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	rws.granters[target.UUID] = true
	return true
}

// Promote upgrades target from reader to writer.
func (rws *RWS) Promote(granter, target PKR) bool {
	if !rws.AddWriter(granter, target) {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	delete(rws.readers, target.UUID)
	return true
}

// Demote downgrades target from writer to reader.
func (rws *RWS) Demote(granter, target PKR) bool {
	if !rws.AddReader(granter, target) {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	delete(rws.writers, target.UUID)
	return true
}

// RemoveReader revokes read access.
func (rws *RWS) RemoveReader(granter, target PKR) bool {
	if !rws.CanGrant(granter) {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	delete(rws.readers, target.UUID)
	return true
}

// RemoveWriter revokes write access.
func (rws *RWS) RemoveWriter(granter, target PKR) bool {
	if !rws.CanGrant(granter) {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	delete(rws.writers, target.UUID)
	return true
}

// RemoveGranter revokes grant authority.
func (rws *RWS) RemoveGranter(granter, target PKR) bool {
	if !rws.CanGrant(granter) {
		return false
	}
	rws.mu.Lock()
	defer rws.mu.Unlock()
	delete(rws.granters, target.UUID)
	return true
}

// Clone deep-copies the RWS, including its owner and all three sets.
func (rws *RWS) Clone() *RWS {
	rws.mu.Lock()
	defer rws.mu.Unlock()
	out := NewRWS(rws.Owner)
	for k := range rws.readers {
		out.readers[k] = true
	}
	for k := range rws.writers {
		out.writers[k] = true
	}
	for k := range rws.granters {
		out.granters[k] = true
	}
	return out
}

// Clear empties the non-owner sets; Owner is untouched.
func (rws *RWS) Clear() {
	rws.mu.Lock()
	defer rws.mu.Unlock()
	rws.readers = map[string]bool{}
	rws.writers = map[string]bool{}
	rws.granters = map[string]bool{}
}

// Resource is one node in the resource arena: an RWS plus a parent id,
// the parent referenced by id (never by pointer) so that a resource tree
// can never form a reference cycle, per the kernel's Design Notes on
// cyclic resource ownership.
type Resource struct {
	ID       string
	ParentID string // "" means no parent
	RWS      *RWS
}

// Arena owns every Resource by id.
type Arena struct {
	mu        sync.RWMutex
	resources map[string]*Resource
}

// NewArena creates an empty resource arena.
func NewArena() *Arena {
	return &Arena{resources: make(map[string]*Resource)}
}

// Put registers a resource (replacing any existing entry with the same id).
func (a *Arena) Put(r *Resource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resources[r.ID] = r
}

// Get retrieves a resource by id.
func (a *Arena) Get(id string) (*Resource, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.resources[id]
	return r, ok
}
