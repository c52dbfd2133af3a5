// Package identity implements the capability/identity model (C15): PKRs,
// the principal registry, reader/writer/granter resource permission sets,
// and the Identity wrapper used by subsystems to check and grant access.
// Grounded on the teacher's supervisor.IdentitySupervisor DID registry,
// generalized from a SAB-backed entry table to a plain mutex-guarded map.
package identity

import (
	"errors"
	"time"
)

// PKR (Public Key Record) is an immutable identity reference. It never
// carries a private key; resolving to a signing capability is the
// PrincipalRegistry's job.
type PKR struct {
	UUID      string
	Kind      PrincipalKind
	PublicKey []byte
	Minter    string
	Expires   time.Time // zero value means "never expires"
}

// PrincipalKind distinguishes the five principal roles in the kernel's
// identity model.
type PrincipalKind string

const (
	KindKernel   PrincipalKind = "kernel"
	KindTopLevel PrincipalKind = "topLevel"
	KindChild    PrincipalKind = "child"
	KindFriend   PrincipalKind = "friend"
	KindResource PrincipalKind = "resource"
)

// NewPKR validates the required fields and constructs a PKR. UUID, Kind,
// and PublicKey are all required; Expires may be the zero time.
func NewPKR(uuid string, kind PrincipalKind, publicKey []byte, minter string, expires time.Time) (PKR, error) {
	if uuid == "" || kind == "" || len(publicKey) == 0 {
		return PKR{}, errors.New("identity: pkr requires uuid, kind, and publicKey")
	}
	return PKR{UUID: uuid, Kind: kind, PublicKey: publicKey, Minter: minter, Expires: expires}, nil
}

// IsValid reports whether the PKR is unexpired and, if minter is
// non-empty, that it was minted by exactly that minter.
func (p PKR) IsValid(minter string) bool {
	if p.UUID == "" {
		return false
	}
	if !p.Expires.IsZero() && time.Now().After(p.Expires) {
		return false
	}
	if minter != "" && p.Minter != minter {
		return false
	}
	return true
}
