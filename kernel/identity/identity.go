package identity

import (
	"context"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

// SendOptions configures a SendProtected call.
type SendOptions struct {
	Timeout int
}

// SendFunc is the kernel's sendProtected contract: sign with the resolved
// sender identity, stamp senderPKR onto the message, resolve the
// destination subsystem via the root router, and invoke Accept. Modeled
// as an explicit function type rather than dynamic dispatch, per the
// Design Notes guidance on sendProtected.
type SendFunc func(ctx context.Context, sender PKR, path foundation.Path, msg foundation.Message, opts SendOptions) (*foundation.Result, error)

// CheckOptions configures a permission check.
type CheckOptions struct {
	Inherit bool
}

// Identity is the capability object returned by CreateIdentity: it binds
// one principal's PKR to one resource's RWS (and, for the kernel
// identity, to the sendProtected function), and exposes the permission
// and role surface a subsystem or caller sees.
type Identity struct {
	pkr        PKR
	resourceID string
	arena      *Arena
	registry   *Registry
	send       SendFunc
}

// NewIdentity constructs an Identity. arena/resourceID may be left zero
// ("", nil) for identities that only need role/SendProtected, not resource
// permission checks.
func NewIdentity(pkr PKR, registry *Registry, arena *Arena, send SendFunc) *Identity {
	return &Identity{pkr: pkr, registry: registry, arena: arena, send: send}
}

// BindResource returns a copy of id bound to check permissions against a
// specific resource in arena, per spec's "Root/Child/Leaf" resource model.
func (id *Identity) BindResource(resourceID string, arena *Arena) *Identity {
	next := *id
	next.resourceID = resourceID
	next.arena = arena
	return &next
}

// PKR returns the principal this identity represents.
func (id *Identity) PKR() PKR { return id.pkr }

// CanRead reports whether subject may read the bound resource, walking
// the parent chain when opts.Inherit is set.
func (id *Identity) CanRead(subject PKR, opts CheckOptions) bool {
	return id.check(subject, opts, func(rws *RWS) bool { return rws.CanRead(subject) })
}

// CanWrite reports whether subject may write the bound resource.
func (id *Identity) CanWrite(subject PKR, opts CheckOptions) bool {
	return id.check(subject, opts, func(rws *RWS) bool { return rws.CanWrite(subject) })
}

// CanGrant reports whether subject may grant access on the bound resource.
func (id *Identity) CanGrant(subject PKR, opts CheckOptions) bool {
	return id.check(subject, opts, func(rws *RWS) bool { return rws.CanGrant(subject) })
}

func (id *Identity) check(subject PKR, opts CheckOptions, test func(*RWS) bool) bool {
	if id.arena == nil {
		return false
	}
	res, ok := id.arena.Get(id.resourceID)
	if !ok {
		return false
	}
	if test(res.RWS) {
		return true
	}
	if !opts.Inherit {
		return false
	}
	for res.ParentID != "" {
		parent, ok := id.arena.Get(res.ParentID)
		if !ok {
			return false
		}
		if test(parent.RWS) {
			return true
		}
		res = parent
	}
	return false
}

// GetRole returns this identity's own role metadata.
func (id *Identity) GetRole() string {
	if id.registry == nil {
		return ""
	}
	return id.registry.GetRole(id.pkr)
}

// SetRole sets this identity's own role metadata.
func (id *Identity) SetRole(role string) error {
	if id.registry == nil {
		return foundation.ErrMissingFacet
	}
	return id.registry.SetRole(id.pkr, role)
}

// SendProtected signs and delivers msg to path as this identity, via the
// kernel's sendProtected contract.
func (id *Identity) SendProtected(ctx context.Context, path foundation.Path, msg foundation.Message, opts SendOptions) (*foundation.Result, error) {
	if id.send == nil {
		return nil, foundation.ErrMissingFacet
	}
	return id.send(ctx, id.pkr, path, msg, opts)
}
