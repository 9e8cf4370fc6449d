package dependency

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sbchat/sbchat/internal/bus"
)

// idleLink stands in for the router connection when the bus is in-process.
type idleLink struct{}

func (idleLink) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// newLoopback joins nodeID to a fresh in-process network together with an
// echo peer that sends every message back to its sender.
func newLoopback(nodeID string) (*bus.Node, error) {
	if nodeID == EchoNodeID {
		return nil, fmt.Errorf("node id %q is reserved in loopback mode", EchoNodeID)
	}

	network := bus.NewNetwork()
	self, err := network.Join(nodeID)
	if err != nil {
		return nil, err
	}
	echo, err := network.Join(EchoNodeID)
	if err != nil {
		return nil, err
	}

	err = bus.BindChat(echo, func(_ context.Context, caller string, msg bus.ChatMsg) error {
		// Reply after the ack so the sender sees "send done!" first.
		go func() {
			if err := bus.CallChat(context.Background(), echo, caller, msg); err != nil {
				slog.Debug("loopback: echo failed", "to", caller, "err", err)
			}
		}()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return self, nil
}
