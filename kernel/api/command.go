// Package api implements the commands/queries/events surface (C14): the
// high-level API built atop the request/response core (C12) and the
// listener manager (C8). Grounded on the teacher's job-queue-plus-channel
// pairing in kernel/threads/supervisor/channels.go, split into three
// narrower, message-kind-specific call shapes instead of one generic
// dispatch entry point.
package api

import (
	"context"
	"time"

	"github.com/nmxmxh/kernelcore/kernel/channel"
	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/request"
)

// CommandOptions configures a single command dispatch.
type CommandOptions struct {
	// ReuseChannel routes the reply through a long-lived channel (created
	// lazily, named after the command's last path segment) instead of an
	// ephemeral one-shot reply route.
	ReuseChannel bool
	Timeout      time.Duration
}

// Commands is the asynchronous, state-changing half of the API surface.
type Commands struct {
	host       foundation.Host
	requester  *request.Requester
	channels   *channel.Manager
	defaultTTL time.Duration
}

// NewCommands builds a Commands surface bound to host, using requester for
// delivery and channels for reuseChannel-backed replies.
func NewCommands(host foundation.Host, requester *request.Requester, channels *channel.Manager, defaultTimeout time.Duration) *Commands {
	return &Commands{host: host, requester: requester, channels: channels, defaultTTL: defaultTimeout}
}

// Register installs a command handler at <subsystem-path>/command/<name>.
func (c *Commands) Register(name string, handler foundation.HandlerFunc, opts foundation.RouteOptions) error {
	path := c.host.FullPath().Child("command", name)
	return c.host.RegisterRoute(path.String(), handler, opts)
}

// Send dispatches a command to target (a full "scheme://..." path) and
// waits for its result, either via a reused channel or a one-shot reply
// route depending on opts.ReuseChannel.
func (c *Commands) Send(ctx context.Context, target string, body interface{}, opts CommandOptions) (*foundation.Result, error) {
	path, err := foundation.ParsePath(target)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.defaultTTL
	}

	msg := foundation.NewMessage(path, foundation.KindCommand, body)

	if !opts.ReuseChannel {
		return c.requester.Ask(ctx, msg, timeout)
	}

	name := channelName(path)
	ch, ok := c.channels.Get(name)
	if !ok {
		ch, err = c.channels.Create(name, channel.CreateOptions{})
		if err != nil {
			return nil, err
		}
	}
	return c.requester.AskViaChannel(ctx, msg, ch.Path, timeout)
}

func channelName(p foundation.Path) string {
	if len(p.Segments) == 0 {
		return p.Scheme
	}
	return p.Segments[len(p.Segments)-1]
}
