package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, uuid string) PKR {
	t.Helper()
	pkr, err := NewPKR(uuid, KindFriend, []byte("pub"), "", time.Time{})
	require.NoError(t, err)
	return pkr
}

func TestPKR_IsValid_Expiration(t *testing.T) {
	live, err := NewPKR("u1", KindFriend, []byte("k"), "", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, live.IsValid(""))

	expired, err := NewPKR("u2", KindFriend, []byte("k"), "", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, expired.IsValid(""))
}

func TestRegistry_AtMostOneKernelPrincipal(t *testing.T) {
	r, kernelIdentity := NewRegistry(true)
	require.NotNil(t, kernelIdentity)

	_, err := r.CreatePrincipal(KindKernel, CreateOptions{PublicKey: []byte("x")})
	require.Error(t, err)
}

func TestRegistry_RoleRoundTrip(t *testing.T) {
	r, _ := NewRegistry(false)
	pkr, err := r.CreatePrincipal(KindTopLevel, CreateOptions{PublicKey: []byte("x")})
	require.NoError(t, err)

	require.NoError(t, r.SetRole(pkr, "operator"))
	assert.Equal(t, "operator", r.GetRole(pkr))

	err = r.SetRole(pkr, "")
	assert.Error(t, err)
	assert.Equal(t, "operator", r.GetRole(pkr), "empty role must not mutate")
}

func TestRWS_OwnerAndKernelAlwaysSatisfy(t *testing.T) {
	r, kernelIdentity := NewRegistry(true)
	owner := newUser(t, "owner")
	rws := NewRWS(owner.UUID)

	assert.True(t, rws.CanRead(owner))
	assert.True(t, rws.CanWrite(owner))
	assert.True(t, rws.CanGrant(owner))

	assert.True(t, rws.CanRead(kernelIdentity.PKR()))
	_ = r
}

func TestRWS_GrantRequiresAuthorization(t *testing.T) {
	owner := newUser(t, "owner")
	outsider := newUser(t, "outsider")
	target := newUser(t, "target")
	rws := NewRWS(owner.UUID)

	assert.False(t, rws.AddReader(outsider, target), "non-granter must not be able to grant")
	assert.True(t, rws.AddReader(owner, target))
	assert.True(t, rws.CanRead(target))
}

func TestIdentity_PermissionInheritance_S7(t *testing.T) {
	arena := NewArena()
	owner := newUser(t, "owner")
	user := newUser(t, "u")

	rootRWS := NewRWS(owner.UUID)
	arena.Put(&Resource{ID: "root", RWS: rootRWS})
	arena.Put(&Resource{ID: "child", ParentID: "root", RWS: NewRWS(owner.UUID)})
	arena.Put(&Resource{ID: "leaf", ParentID: "child", RWS: NewRWS(owner.UUID)})

	rootRWS.AddReader(owner, user)

	leafIdentity := NewIdentity(owner, nil, arena, nil).BindResource("leaf", arena)

	assert.True(t, leafIdentity.CanRead(user, CheckOptions{Inherit: true}))
	assert.False(t, leafIdentity.CanRead(user, CheckOptions{Inherit: false}))

	rootRWS.RemoveReader(owner, user)
	assert.False(t, leafIdentity.CanRead(user, CheckOptions{Inherit: true}))
}
