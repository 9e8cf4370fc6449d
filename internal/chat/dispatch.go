package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/sbchat/sbchat/internal/bus"
	"github.com/sbchat/sbchat/internal/shared/stringutils"
)

// SendDoneText is printed when a peer acknowledged a message.
const SendDoneText = "send done!"

// Printer is the shared output surface. console.Sink implements it.
type Printer interface {
	Print(line string) error
}

// Sender delivers one message body to a peer.
type Sender interface {
	Send(ctx context.Context, target, body string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, target, body string) error

func (f SenderFunc) Send(ctx context.Context, target, body string) error {
	return f(ctx, target, body)
}

// BusSender sends chat messages to /net/<target>/chat.
type BusSender struct {
	Bus bus.Bus
}

func (s BusSender) Send(ctx context.Context, target, body string) error {
	return bus.CallChat(ctx, s.Bus, target, bus.ChatMsg{Msg: body})
}

// FormatSendError renders the line printed for a failed send.
func FormatSendError(err error) string {
	return fmt.Sprintf("send error: %v", err)
}

// Dispatcher drains the handoff queue and runs each send in its own goroutine.
type Dispatcher struct {
	sender  Sender
	sink    Printer
	timeout time.Duration
	errFmt  *color.Color
	wg      sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSendTimeout bounds each send. Zero, the default, waits for the peer
// indefinitely.
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(ds *Dispatcher) { ds.timeout = d }
}

// WithErrorColor toggles coloring of send-error lines.
func WithErrorColor(enabled bool) DispatcherOption {
	return func(ds *Dispatcher) {
		if !enabled {
			ds.errFmt.DisableColor()
		}
	}
}

func NewDispatcher(sender Sender, sink Printer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		sink:   sink,
		errFmt: color.New(color.FgRed),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run receives intents in order and starts a send for each without waiting
// for it. It returns nil once intents is closed, or ctx.Err() if ctx ends first.
func (d *Dispatcher) Run(ctx context.Context, intents <-chan SendIntent) error {
	for {
		select {
		case intent, ok := <-intents:
			if !ok {
				return nil
			}
			d.spawn(ctx, intent)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Wait blocks until every started send has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) spawn(ctx context.Context, intent SendIntent) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("chat: send task panicked", "target", intent.Target(), "panic", r)
			}
		}()
		d.send(ctx, intent)
	}()
}

func (d *Dispatcher) send(ctx context.Context, intent SendIntent) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	line := SendDoneText
	if err := d.sender.Send(ctx, intent.Target(), intent.Body()); err != nil {
		slog.Debug("chat: send failed", "target", intent.Target(), "body", stringutils.Truncate(intent.Body(), 40), "err", err)
		line = d.errFmt.Sprint(FormatSendError(err))
	}

	if err := d.sink.Print(line); err != nil {
		slog.Error("chat: failed to print send result", "target", intent.Target(), "err", err)
	}
}
