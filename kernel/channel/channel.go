// Package channel implements the channel manager (C13): named, long-lived
// routes typically used as multi-party or reusable command-reply
// addresses. Grounded on the teacher's supervisor.ChannelSet naming
// convention, generalized from a fixed job/result/control/metrics set to
// an open, named collection keyed by channel name.
package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/request"
)

// Channel is one long-lived, possibly multi-party route.
type Channel struct {
	Name         string
	Path         foundation.Path
	Participants []string
	CreatedAt    time.Time
	TTL          time.Duration
}

// Expired reports whether the channel's TTL (if any) has elapsed.
func (c Channel) Expired(now time.Time) bool {
	if c.TTL <= 0 {
		return false
	}
	return now.Sub(c.CreatedAt) > c.TTL
}

// CreateOptions configures a new channel.
type CreateOptions struct {
	Participants []string
	TTL          time.Duration
}

// Manager owns the named channels for one subsystem, registering and
// unregistering their catch-all routes on the owning Host.
type Manager struct {
	mu       sync.Mutex
	host     foundation.Host
	store    *request.Store
	channels map[string]Channel
}

// New creates a channel manager bound to host; store is the pending
// response store whose entries the channel's reply handler resolves.
func New(host foundation.Host, store *request.Store) *Manager {
	return &Manager{host: host, store: store, channels: make(map[string]Channel)}
}

// Create registers a new named channel at <subsystem-path>/channels/<name>
// and installs a catch-all route that forwards any response arriving on
// it to the pending-response store by correlation id.
func (m *Manager) Create(name string, opts CreateOptions) (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channels[name]; exists {
		return Channel{}, foundation.ErrDuplicate
	}

	path := m.host.FullPath().Child("channels", name)
	ch := Channel{
		Name:         name,
		Path:         path,
		Participants: opts.Participants,
		CreatedAt:    time.Now(),
		TTL:          opts.TTL,
	}

	handler := func(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
		res, _ := msg.Body.(*foundation.Result)
		m.store.Resolve(msg.Meta.CorrelationID(), res)
		return foundation.Ok(nil), nil
	}

	if err := m.host.RegisterRoute(path.String(), handler, foundation.RouteOptions{}); err != nil {
		return Channel{}, err
	}

	m.channels[name] = ch
	return ch, nil
}

// Close unregisters a channel's route and removes it from the manager.
func (m *Manager) Close(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[name]
	if !ok {
		return fmt.Errorf("%w: channel %q", foundation.ErrNoRoute, name)
	}
	if err := m.host.UnregisterRoute(ch.Path.String()); err != nil {
		return err
	}
	delete(m.channels, name)
	return nil
}

// List returns every currently open channel.
func (m *Manager) List() []Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		out = append(out, ch)
	}
	return out
}

// Get retrieves a channel by name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[name]
	return ch, ok
}
