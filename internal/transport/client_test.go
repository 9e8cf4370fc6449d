package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbchat/sbchat/internal/bus"
)

func TestClient_CallWhileDisconnected(t *testing.T) {
	c := NewClient(ClientConfig{URL: "ws://127.0.0.1:1/bus", NodeID: "me"})
	assert.False(t, c.Connected())

	err := bus.CallChat(context.Background(), c, "peer", bus.ChatMsg{Msg: "hi"})
	require.ErrorIs(t, err, bus.ErrNotConnected)
}

func TestClient_LocalCall(t *testing.T) {
	c := NewClient(ClientConfig{NodeID: "me"})

	var from string
	require.NoError(t, c.Bind("/public/echo", func(_ context.Context, caller string, payload json.RawMessage) (any, error) {
		from = caller
		var m bus.ChatMsg
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return bus.ChatMsg{Msg: m.Msg + "!"}, nil
	}))

	var reply bus.ChatMsg
	require.NoError(t, c.Call(context.Background(), "/public/echo", bus.ChatMsg{Msg: "ping"}, &reply))
	assert.Equal(t, "ping!", reply.Msg)
	assert.Equal(t, "me", from)
}

func TestClient_InvalidAddr(t *testing.T) {
	c := NewClient(ClientConfig{NodeID: "me"})
	err := c.Call(context.Background(), "chat", bus.ChatMsg{}, nil)
	require.ErrorIs(t, err, bus.ErrInvalidAddr)
}

func TestClient_Defaults(t *testing.T) {
	c := NewClient(ClientConfig{NodeID: "me"})
	assert.Equal(t, "me", c.NodeID())
	assert.Equal(t, 5*time.Second, c.cfg.ReconnectDelay)
	assert.NotNil(t, c.cfg.Dialer)
}

func TestClient_RunStopsOnCancelWhileRetrying(t *testing.T) {
	c := NewClient(ClientConfig{URL: "ws://127.0.0.1:1/bus", NodeID: "me", ReconnectDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_WaitConnectedHonoursContext(t *testing.T) {
	c := NewClient(ClientConfig{NodeID: "me"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.WaitConnected(ctx), context.DeadlineExceeded)
}
