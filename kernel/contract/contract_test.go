package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

type stubFacet struct {
	kind    string
	methods []string
}

func (f *stubFacet) Kind() string { return f.kind }

func TestRegistry_RegisterRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Contract{Name: "processor"}))

	err := r.Register(Contract{Name: "processor"})
	assert.ErrorIs(t, err, foundation.ErrDuplicate)
}

func TestRegistry_EnforceFailsForUnknownContract(t *testing.T) {
	r := NewRegistry()
	err := r.Enforce("missing", nil, nil, nil, &stubFacet{kind: "x"})
	assert.ErrorIs(t, err, foundation.ErrContract)
}

func TestRegistry_EnforceReportsMissingMethodsInOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Contract{
		Name: "processor",
		Check: func(f foundation.Facet) []string {
			return []string{"ProcessTick", "Accept"}
		},
	}))

	err := r.Enforce("processor", nil, nil, nil, &stubFacet{kind: "processor"})
	require.Error(t, err)
	assert.ErrorIs(t, err, foundation.ErrContract)
	assert.Contains(t, err.Error(), "Accept, ProcessTick")
}

func TestRegistry_EnforcePassesWhenCheckIsClean(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Contract{
		Name:  "router",
		Check: func(f foundation.Facet) []string { return nil },
	}))

	err := r.Enforce("router", nil, nil, nil, &stubFacet{kind: "router"})
	assert.NoError(t, err)
}

func TestRegistry_EnforceRunsValidateAfterCheck(t *testing.T) {
	r := NewRegistry()
	var validated bool
	require.NoError(t, r.Register(Contract{
		Name: "scheduler",
		Validate: func(ctx foundation.Context, api *foundation.API, host foundation.Host, facet foundation.Facet) error {
			validated = true
			return nil
		},
	}))

	err := r.Enforce("scheduler", nil, nil, nil, &stubFacet{kind: "scheduler"})
	assert.NoError(t, err)
	assert.True(t, validated)
}

func TestRegistry_HasAndGet(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has("processor"))

	require.NoError(t, r.Register(Contract{Name: "processor"}))
	assert.True(t, r.Has("processor"))

	c, ok := r.Get("processor")
	require.True(t, ok)
	assert.Equal(t, "processor", c.Name)
}

func TestDefaultRegistry_IsSharedAcrossCalls(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}
