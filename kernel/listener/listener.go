// Package listener implements the listener manager (C8): path-pattern
// subscribers invoked alongside route handlers. Listener errors are both
// logged and counted, never swallowed silently and never surfaced to the
// publisher — the resolution adopted for the otherwise-unspecified
// "listener error visibility" design question.
package listener

import (
	"context"
	"sync"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/kernelutil"
	"github.com/nmxmxh/kernelcore/kernel/pathmatch"
)

// Policy controls what On does when the same pattern is registered
// twice.
type Policy int

const (
	// Strict rejects a duplicate pattern registration.
	Strict Policy = iota
	// Multi allows multiple listeners on the same pattern.
	Multi
	// Replace replaces any existing registration for the pattern.
	Replace
)

// Handler is invoked once per matching message.
type Handler func(ctx context.Context, msg foundation.Message, params map[string]string) error

type registration struct {
	pattern pathmatch.Pattern
	handler Handler
	id      int
}

// Manager holds the listener registrations for one subsystem.
type Manager struct {
	mu     sync.Mutex
	policy Policy
	regs   []registration
	nextID int
	log    *kernelutil.Logger

	errorCount int
}

// New creates a listener manager with the given duplicate-registration
// policy.
func New(policy Policy, log *kernelutil.Logger) *Manager {
	if log == nil {
		log = kernelutil.DefaultLogger("listener")
	}
	return &Manager{policy: policy, log: log}
}

// On registers handler for pathPattern. Under Strict, registering the
// same pattern string twice fails with foundation.ErrDuplicate.
func (m *Manager) On(pathPattern string, handler Handler) (int, error) {
	pat, err := pathmatch.ParsePattern(pathPattern)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.regs {
		if r.pattern.String() != pat.String() {
			continue
		}
		switch m.policy {
		case Strict:
			return 0, foundation.ErrDuplicate
		case Replace:
			id := m.nextID
			m.nextID++
			m.regs[i] = registration{pattern: pat, handler: handler, id: id}
			return id, nil
		case Multi:
			// fall through to append below
		}
	}

	id := m.nextID
	m.nextID++
	m.regs = append(m.regs, registration{pattern: pat, handler: handler, id: id})
	return id, nil
}

// Off removes the registration with the given id.
func (m *Manager) Off(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.regs {
		if r.id == id {
			m.regs = append(m.regs[:i], m.regs[i+1:]...)
			return
		}
	}
}

// Emit dispatches msg to every matching listener, in registration order.
// A handler's error is logged and counted; it never halts dispatch to the
// remaining listeners and is never returned to the caller.
func (m *Manager) Emit(ctx context.Context, msg foundation.Message) {
	m.mu.Lock()
	regs := append([]registration(nil), m.regs...)
	m.mu.Unlock()

	for _, r := range regs {
		ok, params := pathmatch.Match(r.pattern, msg.Path)
		if !ok {
			continue
		}
		if err := r.handler(ctx, msg, params); err != nil {
			m.mu.Lock()
			m.errorCount++
			m.mu.Unlock()
			m.log.Warn("listener handler failed", kernelutil.String("pattern", r.pattern.String()), kernelutil.Err(err))
		}
	}
}

// Kind identifies a Manager as the "listener" facet kind, so it can be
// installed directly into a subsystem's facet manager.
func (m *Manager) Kind() string { return "listener" }

// ErrorCount returns how many listener invocations have failed.
func (m *Manager) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCount
}

// Len returns the number of active registrations.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regs)
}
