package route

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

func noopHandler(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
	return foundation.Ok(nil), nil
}

func mustPath(t *testing.T, raw string) foundation.Path {
	t.Helper()
	p, err := foundation.ParsePath(raw)
	require.NoError(t, err)
	return p
}

func TestRegistry_RegisterDuplicateRejected(t *testing.T) {
	r := New(0)
	require.NoError(t, r.Register("sys://a/b", noopHandler, foundation.RouteOptions{}))
	err := r.Register("sys://a/b", noopHandler, foundation.RouteOptions{})
	assert.ErrorIs(t, err, foundation.ErrDuplicate)
}

func TestRegistry_MatchPrefersMoreSpecific(t *testing.T) {
	r := New(0)
	require.NoError(t, r.Register("sys://a/*", noopHandler, foundation.RouteOptions{}))
	require.NoError(t, r.Register("sys://a/{id}", noopHandler, foundation.RouteOptions{}))
	require.NoError(t, r.Register("sys://a/b", noopHandler, foundation.RouteOptions{}))

	m, ok := r.Match(mustPath(t, "sys://a/b"))
	require.True(t, ok)
	assert.Equal(t, "sys://a/b", m.Entry.Pattern.String())
}

func TestRegistry_MatchTieBreakByRegistrationOrder(t *testing.T) {
	r := New(0)
	require.NoError(t, r.Register("sys://a/{x}", noopHandler, foundation.RouteOptions{}))
	require.NoError(t, r.Register("sys://a/{y}", noopHandler, foundation.RouteOptions{}))

	m, ok := r.Match(mustPath(t, "sys://a/b"))
	require.True(t, ok)
	assert.Equal(t, "sys://a/{x}", m.Entry.Pattern.String())
}

func TestRegistry_UnregisterRoundTrip(t *testing.T) {
	r := New(0)
	require.NoError(t, r.Register("sys://a/b", noopHandler, foundation.RouteOptions{}))
	require.NoError(t, r.Unregister("sys://a/b"))
	assert.Equal(t, 0, r.Len())

	_, ok := r.Match(mustPath(t, "sys://a/b"))
	assert.False(t, ok)
}

func TestRegistry_UnregisterMissing(t *testing.T) {
	r := New(0)
	err := r.Unregister("sys://nope")
	assert.ErrorIs(t, err, foundation.ErrNoRoute)
}

func TestRegistry_CacheInvalidatesOnMutation(t *testing.T) {
	r := New(0)
	require.NoError(t, r.Register("sys://a/b", noopHandler, foundation.RouteOptions{}))
	_, ok := r.Match(mustPath(t, "sys://a/b"))
	require.True(t, ok)

	require.NoError(t, r.Unregister("sys://a/b"))
	_, ok = r.Match(mustPath(t, "sys://a/b"))
	assert.False(t, ok, "cache must be invalidated after unregister")
}

func TestRegistry_MatchCacheHonorsCapacity(t *testing.T) {
	r := New(1)
	require.NoError(t, r.Register("sys://*", noopHandler, foundation.RouteOptions{}))

	_, ok := r.Match(mustPath(t, "sys://a"))
	require.True(t, ok)
	_, ok = r.Match(mustPath(t, "sys://b"))
	require.True(t, ok)

	assert.LessOrEqual(t, r.cacheLRU.Len(), 1)
}
