package bus

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	ChatService  = "chat"
	ChatEndpoint = PublicPrefix + ChatService
)

// ChatMsg is the payload of one chat message.
type ChatMsg struct {
	Msg string `json:"msg"`
}

// Ack is the empty reply a chat endpoint returns on delivery.
type Ack struct{}

// ChatHandler receives one inbound chat message from caller.
type ChatHandler func(ctx context.Context, caller string, msg ChatMsg) error

// BindChat binds h to this node's public chat endpoint.
func BindChat(b Bus, h ChatHandler) error {
	return b.Bind(ChatEndpoint, func(ctx context.Context, caller string, payload json.RawMessage) (any, error) {
		var msg ChatMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("bus: decode chat message: %w", err)
		}
		if err := h(ctx, caller, msg); err != nil {
			return nil, err
		}
		return Ack{}, nil
	})
}

// CallChat sends msg to the chat endpoint of node to and waits for the ack.
func CallChat(ctx context.Context, b Bus, to string, msg ChatMsg) error {
	var ack Ack
	return b.Call(ctx, NetAddr(to, ChatService), msg, &ack)
}
