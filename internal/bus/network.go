package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Network is an in-process bus connecting any number of Nodes.
// Payloads and results are passed through JSON so handlers observe the
// same values they would over a real transport.
type Network struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

func NewNetwork() *Network {
	return &Network{nodes: make(map[string]*Node)}
}

// Join attaches a new node with the given ID.
func (n *Network) Join(id string) (*Node, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.nodes[id]; exists {
		return nil, fmt.Errorf("bus: node %q already joined", id)
	}
	node := &Node{id: id, network: n}
	n.nodes[id] = node
	return node, nil
}

// Leave detaches the node with the given ID; calls to it fail afterwards.
func (n *Network) Leave(id string) {
	n.mu.Lock()
	delete(n.nodes, id)
	n.mu.Unlock()
}

func (n *Network) lookup(id string) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	node, ok := n.nodes[id]
	return node, ok
}

// Node is one participant of a Network. It implements Bus.
type Node struct {
	id        string
	network   *Network
	endpoints Endpoints
}

func (n *Node) NodeID() string { return n.id }

func (n *Node) Bind(addr string, h Handler) error {
	return n.endpoints.Bind(addr, h)
}

func (n *Node) Call(ctx context.Context, addr string, payload, result any) error {
	target := n
	endpoint := addr
	if id, ep, ok := ParseNetAddr(addr); ok {
		node, found := n.network.lookup(id)
		if !found {
			return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
		}
		target, endpoint = node, ep
	} else if !IsPublic(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddr, addr)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: encode payload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	reply, err := target.endpoints.Dispatch(ctx, n.id, endpoint, raw)
	if err != nil {
		return err
	}
	out, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("bus: encode result: %w", err)
	}
	return DecodeResult(out, result)
}
