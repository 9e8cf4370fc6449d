package chat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"

	"github.com/sbchat/sbchat/internal/console"
)

// HandoffCapacity is the size of the queue between the InputLoop and the
// Dispatcher. With one slot, a second message blocks input until the first
// has been picked up.
const HandoffCapacity = 1

// NoTargetHint is written to the hint writer when a message is typed before
// any peer has been selected.
const NoTargetHint = "no conversation selected; pick a peer first, e.g. =0x889ff52ece3d5368051f4f8216650a7843f8926b"

// InputLoop reads console lines and turns them into peer switches or SendIntents.
type InputLoop struct {
	reader  console.LineReader
	hints   io.Writer
	intents chan SendIntent
	conv    Conversation
	hintFmt *color.Color
}

// InputOption configures an InputLoop.
type InputOption func(*InputLoop)

// WithHintColor toggles coloring of the no-target hint.
func WithHintColor(enabled bool) InputOption {
	return func(l *InputLoop) {
		if !enabled {
			l.hintFmt.DisableColor()
		}
	}
}

// NewInputLoop creates the loop and the handoff queue it feeds.
// The queue is closed when Run returns.
func NewInputLoop(reader console.LineReader, hints io.Writer, opts ...InputOption) (*InputLoop, <-chan SendIntent) {
	l := &InputLoop{
		reader:  reader,
		hints:   hints,
		intents: make(chan SendIntent, HandoffCapacity),
		hintFmt: color.New(color.FgYellow),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, l.intents
}

// Run blocks reading lines until the reader fails. It always closes the
// handoff queue on return and reports the failure as console.ErrInputClosed.
func (l *InputLoop) Run() error {
	defer close(l.intents)

	for {
		line, err := l.reader.ReadLine(l.conv.Prompt())
		if err != nil {
			if !errors.Is(err, console.ErrInputClosed) {
				err = fmt.Errorf("%w: %w", console.ErrInputClosed, err)
			}
			return err
		}
		l.handle(line)
	}
}

func (l *InputLoop) handle(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	if rest, ok := strings.CutPrefix(line, "="); ok {
		target := strings.TrimSpace(rest)
		l.conv.Set(target)
		slog.Debug("chat: conversation switched", "target", target)
		return
	}

	l.reader.AddHistory(line)

	target, ok := l.conv.Target()
	if !ok {
		l.hintFmt.Fprintln(l.hints, NoTargetHint)
		return
	}

	// Blocks while the previous intent is still waiting for the Dispatcher.
	l.intents <- NewSendIntent(target, line)
}
