package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/sbchat/sbchat/internal/bus"
	"github.com/sbchat/sbchat/internal/heartbeat"
)

const pingWriteWait = 10 * time.Second

// ClientConfig configures a router connection.
type ClientConfig struct {
	URL            string
	NodeID         string
	ReconnectDelay time.Duration // default 5s
	PingInterval   time.Duration // default heartbeat.DefaultInterval
	Dialer         *websocket.Dialer
}

// Client is a bus node connected to a router. It implements bus.Bus.
// Bindings are kept across reconnects.
type Client struct {
	cfg       ClientConfig
	endpoints bus.Endpoints

	mu      sync.Mutex
	conn    *jsonrpc2.Conn
	changed chan struct{} // closed and replaced whenever conn changes
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Client{cfg: cfg, changed: make(chan struct{})}
}

func (c *Client) NodeID() string { return c.cfg.NodeID }

func (c *Client) Bind(addr string, h bus.Handler) error {
	return c.endpoints.Bind(addr, h)
}

// Call sends payload to addr. /net addresses go through the router; /public
// addresses are served by this node's own bindings.
func (c *Client) Call(ctx context.Context, addr string, payload, result any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transport: encode payload: %w", err)
	}

	to, endpoint, ok := bus.ParseNetAddr(addr)
	if !ok {
		if !bus.IsPublic(addr) {
			return fmt.Errorf("%w: %q", bus.ErrInvalidAddr, addr)
		}
		reply, err := c.endpoints.Dispatch(ctx, c.cfg.NodeID, addr, raw)
		if err != nil {
			return err
		}
		out, err := json.Marshal(reply)
		if err != nil {
			return fmt.Errorf("transport: encode result: %w", err)
		}
		return bus.DecodeResult(out, result)
	}

	conn := c.current()
	if conn == nil {
		return bus.ErrNotConnected
	}

	var reply json.RawMessage
	params := CallParams{To: to, Endpoint: endpoint, Payload: raw}
	if err := conn.Call(ctx, MethodCall, params, &reply); err != nil {
		return FromRPCError(err)
	}
	return bus.DecodeResult(reply, result)
}

// Connected reports whether the client is currently registered with the router.
func (c *Client) Connected() bool {
	return c.current() != nil
}

// WaitConnected blocks until the client is registered or ctx ends.
func (c *Client) WaitConnected(ctx context.Context) error {
	for {
		c.mu.Lock()
		conn, changed := c.conn, c.changed
		c.mu.Unlock()
		if conn != nil {
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run keeps the client connected until ctx is cancelled, reconnecting after
// ReconnectDelay whenever the connection drops. A node ID conflict is fatal.
func (c *Client) Run(ctx context.Context) error {
	slog.Info("transport: connecting to router", "url", c.cfg.URL, "node", c.cfg.NodeID)

	for {
		err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrNodeConflict) {
			return err
		}
		slog.Warn("transport: connection lost, reconnecting", "in", c.cfg.ReconnectDelay, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	ws, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	conn := jsonrpc2.NewConn(ctx, NewStream(ws), jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(c.handle)))
	defer conn.Close()

	var ack bus.Ack
	if err := conn.Call(ctx, MethodRegister, RegisterParams{NodeID: c.cfg.NodeID}, &ack); err != nil {
		return fmt.Errorf("register %q: %w", c.cfg.NodeID, FromRPCError(err))
	}

	c.setConn(conn)
	defer c.setConn(nil)
	slog.Info("transport: connected", "node", c.cfg.NodeID)

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	pinger := heartbeat.NewService("router-ping", func(context.Context) error {
		return ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteWait))
	}, c.cfg.PingInterval)
	go func() {
		if err := pinger.Start(pingCtx); err != nil && pingCtx.Err() == nil {
			slog.Warn("transport: ping failed, closing connection", "err", err)
			_ = conn.Close()
		}
	}()

	select {
	case <-conn.DisconnectNotify():
		return errors.New("transport: disconnected from router")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handle serves requests the router pushes to this node.
func (c *Client) handle(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	if req.Method != MethodDeliver {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "unknown method " + req.Method}
	}

	var p DeliverParams
	if err := DecodeParams(req, &p); err != nil {
		return nil, err
	}

	reply, err := c.endpoints.Dispatch(ctx, p.From, p.Endpoint, p.Payload)
	if err != nil {
		slog.Debug("transport: deliver failed", "from", p.From, "endpoint", p.Endpoint, "err", err)
		return nil, ToRPCError(err)
	}
	return reply, nil
}

func (c *Client) current() *jsonrpc2.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) setConn(conn *jsonrpc2.Conn) {
	c.mu.Lock()
	c.conn = conn
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

var _ bus.Bus = (*Client)(nil)
