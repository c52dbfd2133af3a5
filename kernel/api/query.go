package api

import (
	"context"
	"strings"
	"time"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/request"
)

// Queries is the synchronous, read-only half of the API surface. Handlers
// registered here are expected (by convention, not enforcement) not to
// mutate externally-visible state.
type Queries struct {
	host       foundation.Host
	requester  *request.Requester
	defaultTTL time.Duration
}

// NewQueries builds a Queries surface bound to host.
func NewQueries(host foundation.Host, requester *request.Requester, defaultTimeout time.Duration) *Queries {
	return &Queries{host: host, requester: requester, defaultTTL: defaultTimeout}
}

// resolveQueryName applies the short-name resolution rule: "foo" becomes
// "query/foo"; a name already under "query/" is left alone.
func resolveQueryName(name string) string {
	if strings.HasPrefix(name, "query/") {
		return name
	}
	return "query/" + name
}

// Register installs a query handler under <subsystem-path>/query/<name>,
// accepting either the short name ("getUser") or the resolved one
// ("query/getUser").
func (q *Queries) Register(name string, handler foundation.HandlerFunc, opts foundation.RouteOptions) error {
	segments := strings.Split(resolveQueryName(name), "/")
	path := q.host.FullPath().Child(segments...)
	return q.host.RegisterRoute(path.String(), handler, opts)
}

// Ask issues a synchronous query against target (a full "scheme://..."
// path) and waits up to timeout for the reply. Queries always use a
// one-shot reply route; there is no channel-backed variant.
func (q *Queries) Ask(ctx context.Context, target string, body interface{}, timeout time.Duration) (*foundation.Result, error) {
	path, err := foundation.ParsePath(target)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = q.defaultTTL
	}
	msg := foundation.NewMessage(path, foundation.KindQuery, body)
	return q.requester.Ask(ctx, msg, timeout)
}
