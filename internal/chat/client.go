package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sbchat/sbchat/internal/bus"
	"github.com/sbchat/sbchat/internal/console"
)

// Options tunes a Client.
type Options struct {
	// SendTimeout bounds each outbound send; zero waits forever.
	SendTimeout time.Duration
	// DrainTimeout is how long Run waits for in-flight sends after input ends.
	DrainTimeout time.Duration
	// Color enables colored hints and error lines.
	Color bool
}

// Client is one interactive chat session: input loop, dispatcher and inbound
// binding sharing a single sink.
type Client struct {
	bus    bus.Bus
	reader console.LineReader
	sink   Printer
	hints  io.Writer
	opts   Options
}

// NewClient creates a Client. hints receives local hints (stderr in the binary).
func NewClient(b bus.Bus, reader console.LineReader, sink Printer, hints io.Writer, opts Options) *Client {
	return &Client{
		bus:    b,
		reader: reader,
		sink:   sink,
		hints:  hints,
		opts:   opts,
	}
}

// Run binds the inbound endpoint, starts reading input and dispatches sends
// until the input closes. In-flight sends get up to DrainTimeout to finish.
func (c *Client) Run(ctx context.Context) error {
	if err := BindInbound(c.bus, c.sink); err != nil {
		return fmt.Errorf("bind inbound: %w", err)
	}

	loop, intents := NewInputLoop(c.reader, c.hints, WithHintColor(c.opts.Color))
	go func() {
		err := loop.Run()
		if errors.Is(err, io.EOF) {
			slog.Info("chat: input closed")
			return
		}
		slog.Warn("chat: input loop stopped", "err", err)
	}()

	dispatcher := NewDispatcher(BusSender{Bus: c.bus}, c.sink,
		WithSendTimeout(c.opts.SendTimeout),
		WithErrorColor(c.opts.Color),
	)

	slog.Info("chat: ready", "node", c.bus.NodeID())
	if err := dispatcher.Run(ctx, intents); err != nil {
		return err
	}

	if c.opts.DrainTimeout <= 0 {
		return nil
	}
	drainCtx, cancel := context.WithTimeout(ctx, c.opts.DrainTimeout)
	defer cancel()
	if err := dispatcher.Wait(drainCtx); err != nil {
		slog.Warn("chat: abandoning in-flight sends", "err", err)
	}
	return nil
}
