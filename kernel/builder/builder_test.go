package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/kernelcore/kernel/contract"
	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/graph"
)

type fakeHost struct {
	name string
	ctx  foundation.Context
}

func (h *fakeHost) Name() string             { return h.name }
func (h *fakeHost) FullPath() foundation.Path { return foundation.Path{Scheme: "sys", Segments: []string{h.name}} }
func (h *fakeHost) Context() foundation.Context {
	if h.ctx == nil {
		return foundation.Context{}
	}
	return h.ctx
}
func (h *fakeHost) RegisterRoute(string, foundation.HandlerFunc, foundation.RouteOptions) error { return nil }
func (h *fakeHost) UnregisterRoute(string) error                                                { return nil }
func (h *fakeHost) Find(string) (foundation.Facet, bool)                                        { return nil, false }
func (h *fakeHost) IsRoot() bool                                                                 { return true }
func (h *fakeHost) Parent() foundation.Host                                                      { return nil }

type stubFacet struct {
	kind string
	deps []string
}

func (f *stubFacet) Kind() string           { return f.kind }
func (f *stubFacet) Dependencies() []string { return f.deps }

func hookFor(kind string, deps []string) foundation.Hook {
	return foundation.Hook{
		Kind: kind,
		Fn: func(ctx foundation.Context, api *foundation.API, host foundation.Host) (foundation.Facet, error) {
			return &stubFacet{kind: kind, deps: deps}, nil
		},
	}
}

func TestBuilder_VerifyResolvesDependencyOrder(t *testing.T) {
	b := New(contract.NewRegistry(), graph.NewCache(10))
	b.SetDefaultHooks([]foundation.Hook{
		hookFor("c", []string{"b"}),
		hookFor("a", nil),
		hookFor("b", []string{"a"}),
	})

	plan, err := b.Verify(&fakeHost{name: "root"}, nil, &foundation.API{}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, plan.OrderedKinds)
}

func TestBuilder_VerifyMissingDependency(t *testing.T) {
	b := New(contract.NewRegistry(), graph.NewCache(10))
	b.SetDefaultHooks([]foundation.Hook{hookFor("a", []string{"missing"})})

	_, err := b.Verify(&fakeHost{name: "root"}, nil, &foundation.API{}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, foundation.ErrMissingDep)
}

func TestBuilder_VerifyStripsKernelServicesWhenInitialized(t *testing.T) {
	b := New(contract.NewRegistry(), graph.NewCache(10))
	b.SetDefaultHooks([]foundation.Hook{hookFor("a", []string{"kernelServices"})})

	_, err := b.Verify(&fakeHost{name: "root"}, nil, &foundation.API{}, true)
	require.NoError(t, err)
}

func TestBuilder_VerifyDuplicateKindRejectedWithoutOverwrite(t *testing.T) {
	b := New(contract.NewRegistry(), graph.NewCache(10))
	b.SetDefaultHooks([]foundation.Hook{hookFor("a", nil), hookFor("a", nil)})

	_, err := b.Verify(&fakeHost{name: "root"}, nil, &foundation.API{}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, foundation.ErrDuplicate)
}

func TestBuilder_VerifyDuplicateKindAllowedWithOverwrite(t *testing.T) {
	b := New(contract.NewRegistry(), graph.NewCache(10))
	first := hookFor("a", nil)
	second := hookFor("a", nil)
	second.Overwrite = true
	b.SetDefaultHooks([]foundation.Hook{first, second})

	plan, err := b.Verify(&fakeHost{name: "root"}, nil, &foundation.API{}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, plan.OrderedKinds)
}

func TestBuilder_VerifyCyclicDependency(t *testing.T) {
	b := New(contract.NewRegistry(), graph.NewCache(10))
	b.SetDefaultHooks([]foundation.Hook{
		hookFor("a", []string{"b"}),
		hookFor("b", []string{"a"}),
	})

	_, err := b.Verify(&fakeHost{name: "root"}, nil, &foundation.API{}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, foundation.ErrCycle)
}

func TestBuilder_ContractEnforcementFailure(t *testing.T) {
	reg := contract.NewRegistry()
	require.NoError(t, reg.Register(contract.Contract{
		Name: "needsX",
		Check: func(f foundation.Facet) []string {
			return []string{"x"}
		},
	}))

	b := New(reg, graph.NewCache(10))
	b.SetDefaultHooks([]foundation.Hook{{
		Kind: "a",
		Fn: func(ctx foundation.Context, api *foundation.API, host foundation.Host) (foundation.Facet, error) {
			return &contractualStub{kind: "a", contractName: "needsX"}, nil
		},
	}})

	_, err := b.Verify(&fakeHost{name: "root"}, nil, &foundation.API{}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, foundation.ErrContract)
}

type contractualStub struct {
	kind         string
	contractName string
}

func (f *contractualStub) Kind() string         { return f.kind }
func (f *contractualStub) ContractName() string { return f.contractName }
