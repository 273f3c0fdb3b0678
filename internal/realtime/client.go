// Package realtime implements the execution event channel on top of a
// socket.io connection to the engine.
package realtime

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/apiflow/internal/ctxlog"
	"github.com/specialistvlad/apiflow/internal/execution"
)

// DefaultConnectTimeout bounds the wait for the initial connection.
const DefaultConnectTimeout = 15 * time.Second

// ErrNotConnected is returned by Subscribe on a dropped connection.
var ErrNotConnected = errors.New("socket.io client is not connected")

// Options configure Connect.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

var _ execution.Channel = (*Client)(nil)

// Client is a connected execution event channel.
type Client struct {
	io     *socket.Socket
	router *Router
	logger *slog.Logger
}

// Connect dials the engine's socket.io endpoint and registers the event
// listeners once for the lifetime of the connection.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("component", "realtime", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	sopts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sopts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	c := &Client{io: io, logger: logger}
	c.router = NewRouter(func(event string, args ...any) {
		io.Emit(event, args...)
	}, logger)

	for _, kind := range execution.Kinds {
		io.On(types.EventName(kind), func(args ...any) {
			c.router.Dispatch(kind, args...)
		})
	}
	io.On(types.EventName(eventWorkflowNodes), func(args ...any) {
		logger.Debug("Workflow nodes announced.", "payload", args)
	})
	io.On(types.EventName("disconnect"), func(args ...any) {
		logger.Warn("Disconnected from engine.", "reason", args)
	})

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return c, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Subscribe joins the execution room and delivers its events.
func (c *Client) Subscribe(ctx context.Context, executionID string, deliver func(execution.Event)) (execution.Subscription, error) {
	if !c.io.Connected() {
		return nil, ErrNotConnected
	}
	return c.router.Subscribe(ctx, executionID, deliver)
}

// Close disconnects from the engine.
func (c *Client) Close() error {
	c.logger.Info("Closing socket.io client", "sid", c.io.Id())
	c.io.Disconnect()
	return nil
}
