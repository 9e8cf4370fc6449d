// Package transport carries the bus over websockets using JSON-RPC 2.0.
//
// Each node keeps one websocket to the router. The node registers its ID,
// asks the router to "call" endpoints on other nodes, and serves "deliver"
// requests the router forwards to it.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/sbchat/sbchat/internal/bus"
)

const (
	MethodRegister = "register"
	MethodCall     = "call"
	MethodDeliver  = "deliver"
)

// Application error codes, outside the range reserved by JSON-RPC.
const (
	CodeNodeNotFound  int64 = -32001
	CodeNodeConflict  int64 = -32002
	CodeNotRegistered int64 = -32003
	CodeNotBound      int64 = -32004
)

// ErrNodeConflict means another connection already holds this node ID.
var ErrNodeConflict = errors.New("transport: node id already registered")

type RegisterParams struct {
	NodeID string `json:"nodeId"`
}

type CallParams struct {
	To       string          `json:"to"`
	Endpoint string          `json:"endpoint"`
	Payload  json.RawMessage `json:"payload"`
}

type DeliverParams struct {
	From     string          `json:"from"`
	Endpoint string          `json:"endpoint"`
	Payload  json.RawMessage `json:"payload"`
}

// ToRPCError maps a bus failure to the error sent over the wire.
func ToRPCError(err error) *jsonrpc2.Error {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var remote *bus.RemoteError
	if errors.As(err, &remote) {
		return &jsonrpc2.Error{Code: remote.Code, Message: remote.Message}
	}

	var code int64 = jsonrpc2.CodeInternalError
	switch {
	case errors.Is(err, bus.ErrNodeNotFound):
		code = CodeNodeNotFound
	case errors.Is(err, bus.ErrNotBound):
		code = CodeNotBound
	case errors.Is(err, bus.ErrInvalidAddr):
		code = jsonrpc2.CodeInvalidParams
	}
	return &jsonrpc2.Error{Code: code, Message: err.Error()}
}

// FromRPCError maps an error returned by jsonrpc2.Conn.Call back onto the bus
// error vocabulary.
func FromRPCError(err error) error {
	if errors.Is(err, jsonrpc2.ErrClosed) {
		return fmt.Errorf("%w: %v", bus.ErrNotConnected, err)
	}
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		return err
	}

	switch rpcErr.Code {
	case CodeNodeNotFound:
		return fmt.Errorf("%w: %s", bus.ErrNodeNotFound, rpcErr.Message)
	case CodeNotBound:
		return fmt.Errorf("%w: %s", bus.ErrNotBound, rpcErr.Message)
	case CodeNodeConflict:
		return fmt.Errorf("%w: %s", ErrNodeConflict, rpcErr.Message)
	default:
		return &bus.RemoteError{Code: rpcErr.Code, Message: rpcErr.Message}
	}
}

func invalidParams(method string, err error) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf("%s: invalid params: %v", method, err)}
}

// DecodeParams unmarshals req.Params into v, reporting a JSON-RPC
// invalid-params error on failure.
func DecodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return invalidParams(req.Method, errors.New("missing"))
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return invalidParams(req.Method, err)
	}
	return nil
}
