package chat

import (
	"context"
	"log/slog"

	"github.com/sbchat/sbchat/internal/bus"
)

// FormatInbound renders one received message.
func FormatInbound(sender, body string) string {
	return "[from: " + sender + "]: " + body
}

// BindInbound binds this node's chat endpoint and prints every received
// message to sink. Delivery is always acknowledged; a print failure is only
// logged and never reported back to the sender.
func BindInbound(b bus.Bus, sink Printer) error {
	return bus.BindChat(b, func(_ context.Context, caller string, msg bus.ChatMsg) error {
		if err := sink.Print(FormatInbound(caller, msg.Msg)); err != nil {
			slog.Error("chat: failed to print inbound message", "from", caller, "err", err)
		}
		return nil
	})
}
