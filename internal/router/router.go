// Package router implements the hub that bus nodes connect to. It keeps a
// registry of node IDs and forwards calls between their connections.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/sbchat/sbchat/internal/bus"
	"github.com/sbchat/sbchat/internal/transport"
)

// Stats is a point-in-time snapshot of router activity.
type Stats struct {
	Nodes     int      `json:"nodes"`
	NodeIDs   []string `json:"nodeIds"`
	Calls     uint64   `json:"calls"`
	Failed    uint64   `json:"failed"`
	UptimeSec int64    `json:"uptimeSec"`
}

// Router serves the bus protocol over websocket connections.
type Router struct {
	upgrader websocket.Upgrader
	started  time.Time

	mu    sync.RWMutex
	nodes map[string]*peer
	conns map[*peer]struct{}

	calls  atomic.Uint64
	failed atomic.Uint64
}

// peer is one websocket connection. nodeID is set once by register.
type peer struct {
	connID string
	log    *slog.Logger
	ws     *websocket.Conn
	rpc    *jsonrpc2.Conn

	mu     sync.Mutex
	nodeID string
}

func (p *peer) node() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nodeID
}

func New() *Router {
	return &Router{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		started: time.Now(),
		nodes:   make(map[string]*peer),
		conns:   make(map[*peer]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		slog.Warn("router: upgrade failed", "remote", req.RemoteAddr, "err", err)
		return
	}

	p := &peer{connID: uuid.NewString(), ws: ws}
	p.log = slog.With("conn", p.connID, "remote", req.RemoteAddr)

	// Held until rpc is set so register cannot publish p before then.
	p.mu.Lock()
	p.rpc = jsonrpc2.NewConn(req.Context(), transport.NewStream(ws),
		jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(func(ctx context.Context, _ *jsonrpc2.Conn, rq *jsonrpc2.Request) (any, error) {
			return r.handle(ctx, p, rq)
		})))
	p.mu.Unlock()

	r.mu.Lock()
	r.conns[p] = struct{}{}
	r.mu.Unlock()
	p.log.Debug("router: peer connected")

	<-p.rpc.DisconnectNotify()

	r.drop(p)
	p.log.Debug("router: peer disconnected", "node", p.node())
}

func (r *Router) handle(ctx context.Context, p *peer, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case transport.MethodRegister:
		return r.register(p, req)
	case transport.MethodCall:
		return r.call(ctx, p, req)
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "unknown method " + req.Method}
	}
}

func (r *Router) register(p *peer, req *jsonrpc2.Request) (any, error) {
	var params transport.RegisterParams
	if err := transport.DecodeParams(req, &params); err != nil {
		return nil, err
	}
	if params.NodeID == "" {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "register: empty node id"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nodeID != "" {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: fmt.Sprintf("register: connection already registered as %q", p.nodeID)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.nodes[params.NodeID]; taken {
		return nil, &jsonrpc2.Error{Code: transport.CodeNodeConflict, Message: fmt.Sprintf("node id %q already registered", params.NodeID)}
	}
	r.nodes[params.NodeID] = p
	p.nodeID = params.NodeID

	p.log.Info("router: node registered", "node", params.NodeID)
	return bus.Ack{}, nil
}

func (r *Router) call(ctx context.Context, p *peer, req *jsonrpc2.Request) (any, error) {
	from := p.node()
	if from == "" {
		return nil, &jsonrpc2.Error{Code: transport.CodeNotRegistered, Message: "call: register first"}
	}

	var params transport.CallParams
	if err := transport.DecodeParams(req, &params); err != nil {
		return nil, err
	}

	r.calls.Add(1)
	target := r.lookup(params.To)
	if target == nil {
		r.failed.Add(1)
		return nil, &jsonrpc2.Error{Code: transport.CodeNodeNotFound, Message: fmt.Sprintf("node %q not found", params.To)}
	}

	deliver := transport.DeliverParams{From: from, Endpoint: params.Endpoint, Payload: params.Payload}
	var reply json.RawMessage
	if err := target.rpc.Call(ctx, transport.MethodDeliver, deliver, &reply); err != nil {
		r.failed.Add(1)
		p.log.Debug("router: forward failed", "from", from, "to", params.To, "endpoint", params.Endpoint, "err", err)

		var rpcErr *jsonrpc2.Error
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		if errors.Is(err, jsonrpc2.ErrClosed) {
			return nil, &jsonrpc2.Error{Code: transport.CodeNodeNotFound, Message: fmt.Sprintf("node %q disconnected", params.To)}
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
	return reply, nil
}

func (r *Router) lookup(nodeID string) *peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodes[nodeID]
}

// drop forgets p. The registry entry is removed only while it still points
// at p, so a stale connection cannot evict a newer registration.
func (r *Router) drop(p *peer) {
	nodeID := p.node()

	r.mu.Lock()
	delete(r.conns, p)
	if nodeID != "" && r.nodes[nodeID] == p {
		delete(r.nodes, nodeID)
	}
	r.mu.Unlock()

	if nodeID != "" {
		p.log.Info("router: node left", "node", nodeID)
	}
}

// Nodes returns the IDs currently registered, sorted.
func (r *Router) Nodes() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (r *Router) Stats() Stats {
	ids := r.Nodes()
	return Stats{
		Nodes:     len(ids),
		NodeIDs:   ids,
		Calls:     r.calls.Load(),
		Failed:    r.failed.Load(),
		UptimeSec: int64(time.Since(r.started) / time.Second),
	}
}

// CloseAll disconnects every peer.
func (r *Router) CloseAll() {
	r.mu.RLock()
	peers := make([]*peer, 0, len(r.conns))
	for p := range r.conns {
		peers = append(peers, p)
	}
	r.mu.RUnlock()

	for _, p := range peers {
		_ = p.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "router shutting down"),
			time.Now().Add(time.Second))
		_ = p.rpc.Close()
	}
}
