package foundation

import "errors"

// Sentinel error kinds shared across every kernel package. Call sites wrap
// these with fmt.Errorf("...: %w", Err...) to add
// operation context while keeping errors.Is checks working for callers.
var (
	ErrPath         = errors.New("malformed path")
	ErrNoRoute      = errors.New("no matching route")
	ErrMissingFacet = errors.New("required facet not installed")
	ErrContract     = errors.New("facet does not satisfy contract")
	ErrMissingDep   = errors.New("missing facet dependency")
	ErrCycle        = errors.New("cyclic facet dependency graph")
	ErrQueueFull    = errors.New("queue full")
	ErrTimeout      = errors.New("request timed out")
	ErrCancelled    = errors.New("request cancelled")
	ErrPermission   = errors.New("permission denied")
	ErrExpired      = errors.New("credential expired")
	ErrDuplicate    = errors.New("duplicate registration")
)
