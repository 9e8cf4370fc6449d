// Package bus defines the request/response service bus that chat nodes talk over.
//
// A node binds handlers to local endpoints under /public and calls endpoints
// on other nodes through /net/<nodeId>/<service> addresses. Implementations
// may be in-process (Network) or remote (transport.Client).
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotBound     = errors.New("bus: endpoint not bound")
	ErrAlreadyBound = errors.New("bus: endpoint already bound")
	ErrNodeNotFound = errors.New("bus: node not found")
	ErrNotConnected = errors.New("bus: not connected")
	ErrInvalidAddr  = errors.New("bus: invalid address")
)

// RemoteError is a failure reported by the remote side of a call.
type RemoteError struct {
	Code    int64
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bus: remote error %d: %s", e.Code, e.Message)
}

// Handler serves one bound endpoint. caller is the node ID of the sender.
// The returned value is marshalled to JSON as the call result.
type Handler func(ctx context.Context, caller string, payload json.RawMessage) (any, error)

// Bus is the contract between chat code and the message bus.
type Bus interface {
	// NodeID returns this node's identifier on the bus.
	NodeID() string
	// Bind registers h for a local /public endpoint.
	Bind(addr string, h Handler) error
	// Call invokes addr with payload and decodes the reply into result.
	// result may be nil when the reply is not needed.
	Call(ctx context.Context, addr string, payload, result any) error
}

// Endpoints is a concurrency-safe table of bound handlers, shared by the
// Bus implementations.
// The zero value is ready to use.
type Endpoints struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// Bind registers h for addr, which must be a /public endpoint.
func (e *Endpoints) Bind(addr string, h Handler) error {
	if !IsPublic(addr) {
		return fmt.Errorf("%w: %q is not a public endpoint", ErrInvalidAddr, addr)
	}
	if h == nil {
		return fmt.Errorf("bus: nil handler for %q", addr)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.handlers[addr]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, addr)
	}
	if e.handlers == nil {
		e.handlers = make(map[string]Handler)
	}
	e.handlers[addr] = h
	return nil
}

// Dispatch runs the handler bound to endpoint.
func (e *Endpoints) Dispatch(ctx context.Context, caller, endpoint string, payload json.RawMessage) (any, error) {
	e.mu.RLock()
	h, ok := e.handlers[endpoint]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, endpoint)
	}
	return h(ctx, caller, payload)
}

// DecodeResult copies a raw JSON reply into result. A nil result discards it.
func DecodeResult(raw json.RawMessage, result any) error {
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("bus: decode result: %w", err)
	}
	return nil
}
