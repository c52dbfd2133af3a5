package foundation

import "context"

// Facet is the minimal shape every installed capability must satisfy: a
// stable kind name used as the key in a subsystem's facet map. Everything
// else a facet can do is expressed as an optional capability interface
// (Initializable, Disposable, Contractual, ...) that the facet manager and
// builder type-assert for, rather than via reflection over method sets.
type Facet interface {
	Kind() string
}

// Initializable facets run setup logic once installed into a subsystem.
type Initializable interface {
	Init(ctx Context, api *API, host Host) error
}

// Disposable facets release resources on subsystem dispose or on rollback
// of a failed AddMany transaction.
type Disposable interface {
	Dispose() error
}

// Contractual facets declare the name of a registered Contract they must
// satisfy; enforcement happens during Verify.
type Contractual interface {
	ContractName() string
}

// Dependent facets declare other facet kinds that must already be present
// (or be installed earlier in the same build) before they can function.
type Dependent interface {
	Dependencies() []string
}

// Overwritable facets may replace an existing facet of the same kind
// instead of causing a duplicate-kind build failure.
type Overwritable interface {
	AllowOverwrite() bool
}

// Attachable facets request a named accessor on the owning subsystem,
// distinct from their Kind (e.g. a facet of kind "scheduler.v2" attached
// as "scheduler").
type Attachable interface {
	AttachAs() string
}

// Context is the resolved build context threaded through Verify/Build: a
// shallow merge of a subsystem's own context and any extra context passed
// to Build, with "config" deep-merged one level.
type Context map[string]interface{}

// Clone performs the shallow-with-deep-config merge copy Verify requires.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		if k == "config" {
			if cfg, ok := v.(map[string]interface{}); ok {
				cp := make(map[string]interface{}, len(cfg))
				for ck, cv := range cfg {
					cp[ck] = cv
				}
				out[k] = cp
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Merge returns a new Context with extra shallow-merged over c; "config"
// sub-maps are deep-merged instead of replaced wholesale.
func (c Context) Merge(extra Context) Context {
	out := c.Clone()
	for k, v := range extra {
		if k == "config" {
			base, _ := out["config"].(map[string]interface{})
			add, ok := v.(map[string]interface{})
			if ok {
				merged := make(map[string]interface{}, len(base)+len(add))
				for ck, cv := range base {
					merged[ck] = cv
				}
				for ck, cv := range add {
					merged[ck] = cv
				}
				out["config"] = merged
				continue
			}
		}
		out[k] = v
	}
	return out
}

// ConfigFor extracts the config sub-map for a given facet kind, or an
// empty map if there is none. The fallback to the shared "debug" flag is
// done by Debug, not here.
func (c Context) ConfigFor(kind string) map[string]interface{} {
	cfg, _ := c["config"].(map[string]interface{})
	sub, _ := cfg[kind].(map[string]interface{})
	if sub == nil {
		sub = map[string]interface{}{}
	}
	return sub
}

// Debug resolves the debug flag: per-facet config, falling back to
// ctx.debug, falling back to false.
func (c Context) Debug(kind string) bool {
	if v, ok := c.ConfigFor(kind)["debug"].(bool); ok {
		return v
	}
	if v, ok := c["debug"].(bool); ok {
		return v
	}
	return false
}

// API is the small set of ambient utilities handed to every hook and facet
// during Verify/Build, distinct from Context (arbitrary config data) and
// Host (structural subsystem access).
type API struct {
	NewID func() string
}

// HandlerFunc processes one routed message and returns the outcome.
type HandlerFunc func(ctx context.Context, msg Message) (*Result, error)

// RouteOptions configures a single route registration.
type RouteOptions struct {
	Priority int
	Metadata map[string]interface{}
}

// Host is the structural surface a facet's Init/hook function is given
// instead of a concrete *subsystem.Subsystem, breaking the import cycle
// between the low-level facet/builder machinery and the subsystem package
// that assembles them (see Design Notes on dynamic hook/facet composition).
type Host interface {
	Name() string
	FullPath() Path
	Context() Context
	RegisterRoute(pattern string, handler HandlerFunc, opts RouteOptions) error
	UnregisterRoute(pattern string) error
	Find(kind string) (Facet, bool)
	IsRoot() bool
	Parent() Host
}

// Hook is a factory that produces a Facet during the build phase.
type Hook struct {
	Kind         string
	ContractName string
	Required     []string
	Overwrite    bool
	Source       string
	Fn           func(ctx Context, api *API, host Host) (Facet, error)
}
