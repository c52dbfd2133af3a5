package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/kernelcore/kernel/channel"
	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/listener"
	"github.com/nmxmxh/kernelcore/kernel/request"
)

// fakeRouter is a minimal process-wide router: an exact-path handler map
// shared by every fakeHost in a test, standing in for kernel/system's real
// scheme/segment dispatch.
type fakeRouter struct {
	mu     sync.Mutex
	routes map[string]foundation.HandlerFunc
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{routes: make(map[string]foundation.HandlerFunc)}
}

func (r *fakeRouter) register(pattern string, h foundation.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[pattern] = h
}

func (r *fakeRouter) unregister(pattern string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routes, pattern)
}

// Send dispatches msg to its exact-path handler and, if the message
// carries a reply path, synchronously delivers the handler's result back
// to whatever is registered there.
func (r *fakeRouter) Send(ctx context.Context, msg foundation.Message) error {
	r.mu.Lock()
	handler, ok := r.routes[msg.Path.String()]
	r.mu.Unlock()
	if !ok {
		return foundation.ErrNoRoute
	}

	res, err := handler(ctx, msg)
	if err != nil {
		return err
	}

	replyPath := msg.Meta.ReplyPath()
	if replyPath == "" {
		return nil
	}
	r.mu.Lock()
	replyHandler, ok := r.routes[replyPath]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	respPath, perr := foundation.ParsePath(replyPath)
	if perr != nil {
		return nil
	}
	resp := foundation.NewMessage(respPath, foundation.KindResponse, res).
		WithMeta(foundation.MetaCorrelationID, msg.Meta.CorrelationID())
	_, _ = replyHandler(ctx, resp)
	return nil
}

type fakeHost struct {
	name   string
	scheme string
	router *fakeRouter
}

func newFakeHost(name, scheme string, router *fakeRouter) *fakeHost {
	return &fakeHost{name: name, scheme: scheme, router: router}
}

func (h *fakeHost) Name() string               { return h.name }
func (h *fakeHost) FullPath() foundation.Path   { return foundation.Path{Scheme: h.scheme} }
func (h *fakeHost) Context() foundation.Context { return foundation.Context{} }
func (h *fakeHost) RegisterRoute(pattern string, handler foundation.HandlerFunc, opts foundation.RouteOptions) error {
	h.router.register(pattern, handler)
	return nil
}
func (h *fakeHost) UnregisterRoute(pattern string) error {
	h.router.unregister(pattern)
	return nil
}
func (h *fakeHost) Find(string) (foundation.Facet, bool) { return nil, false }
func (h *fakeHost) IsRoot() bool                         { return true }
func (h *fakeHost) Parent() foundation.Host              { return nil }

func TestQueries_AskResolvesQueryRoundTrip(t *testing.T) {
	router := newFakeRouter()
	usersHost := newFakeHost("users", "users", router)
	callerHost := newFakeHost("caller", "caller", router)

	usersQueries := NewQueries(usersHost, nil, time.Second)
	err := usersQueries.Register("getUser", func(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
		in := msg.Body.(map[string]string)
		return foundation.Ok(map[string]string{"id": in["id"], "name": "Ada"}), nil
	}, foundation.RouteOptions{})
	require.NoError(t, err)
	assert.Contains(t, router.routes, "users://query/getUser")

	store := request.NewStore()
	requester := request.New(callerHost, store, router)
	callerQueries := NewQueries(callerHost, requester, time.Second)

	res, err := callerQueries.Ask(context.Background(), "users://query/getUser", map[string]string{"id": "u1"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "u1", "name": "Ada"}, res.Data)
	assert.Equal(t, 0, store.Len())
}

func TestCommands_SendWithReuseChannelKeepsChannelOpen(t *testing.T) {
	router := newFakeRouter()
	workerHost := newFakeHost("worker", "worker", router)
	apiHost := newFakeHost("api", "api", router)

	err := workerHost.RegisterRoute("worker://command/process", func(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
		return foundation.Ok(map[string]string{"status": "ok"}), nil
	}, foundation.RouteOptions{})
	require.NoError(t, err)

	store := request.NewStore()
	requester := request.New(apiHost, store, router)
	channels := channel.New(apiHost, store)
	commands := NewCommands(apiHost, requester, channels, 5*time.Second)

	res, err := commands.Send(context.Background(), "worker://command/process", map[string]string{"job": "j1"}, CommandOptions{ReuseChannel: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"status": "ok"}, res.Data)
	assert.Equal(t, 0, store.Len())

	_, open := channels.Get("process")
	assert.True(t, open, "reused channel must remain open after completion")
}

func TestEvents_PublishFansOutToListenersAndRoutes(t *testing.T) {
	router := newFakeRouter()
	host := newFakeHost("notifier", "notifier", router)

	var routeHit, listenerHit bool
	err := host.RegisterRoute("notifier://event/created", func(ctx context.Context, msg foundation.Message) (*foundation.Result, error) {
		routeHit = true
		return foundation.Ok(nil), nil
	}, foundation.RouteOptions{})
	require.NoError(t, err)

	listeners := listener.New(listener.Multi, nil)
	events := NewEvents(host, listeners, router)
	_, err = events.On("notifier://event/created", func(ctx context.Context, msg foundation.Message, params map[string]string) error {
		listenerHit = true
		return nil
	})
	require.NoError(t, err)

	err = events.Publish(context.Background(), "notifier://event/created", map[string]string{"id": "u1"})
	require.NoError(t, err)
	assert.True(t, routeHit)
	assert.True(t, listenerHit)
}

func TestEvents_PublishToUnroutedTargetIsNotAnError(t *testing.T) {
	router := newFakeRouter()
	host := newFakeHost("notifier", "notifier", router)
	listeners := listener.New(listener.Multi, nil)
	events := NewEvents(host, listeners, router)

	err := events.Publish(context.Background(), "notifier://event/unobserved", nil)
	assert.NoError(t, err)
}
