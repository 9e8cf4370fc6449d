package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func feed(intents ...SendIntent) <-chan SendIntent {
	ch := make(chan SendIntent, len(intents))
	for _, i := range intents {
		ch <- i
	}
	close(ch)
	return ch
}

func waitAll(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
}

func TestDispatcher_SlowPeerDoesNotBlockLaterSends(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	sender := SenderFunc(func(ctx context.Context, target, body string) error {
		if target == "slow" {
			<-release
			return errors.New("peer timeout")
		}
		return nil
	})
	sink := &recordingSink{}
	d := NewDispatcher(sender, sink, WithErrorColor(false))

	require.NoError(t, d.Run(context.Background(), feed(
		NewSendIntent("slow", "first"),
		NewSendIntent("fast", "second"),
	)))

	// Run returned while the first send is still parked.
	require.Eventually(t, func() bool { return len(sink.Lines()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{SendDoneText}, sink.Lines())

	close(release)
	waitAll(t, d)
	assert.Equal(t, []string{SendDoneText, "send error: peer timeout"}, sink.Lines())
}

func TestDispatcher_FailurePrintsOneLineWithDetail(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := SenderFunc(func(context.Context, string, string) error {
		return fmt.Errorf("call /net/peerX/chat: %w", errors.New("node not found"))
	})
	sink := &recordingSink{}
	d := NewDispatcher(sender, sink, WithErrorColor(false))

	require.NoError(t, d.Run(context.Background(), feed(NewSendIntent("peerX", "hi"))))
	waitAll(t, d)

	lines := sink.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "send error: call /net/peerX/chat: node not found", lines[0])
}

func TestDispatcher_PassesTargetAndBody(t *testing.T) {
	var mu sync.Mutex
	var got []SendIntent
	sender := SenderFunc(func(_ context.Context, target, body string) error {
		mu.Lock()
		got = append(got, NewSendIntent(target, body))
		mu.Unlock()
		return nil
	})
	d := NewDispatcher(sender, &recordingSink{})

	require.NoError(t, d.Run(context.Background(), feed(NewSendIntent("peer1", "  raw body "))))
	waitAll(t, d)

	require.Len(t, got, 1)
	assert.Equal(t, "peer1", got[0].Target())
	assert.Equal(t, "  raw body ", got[0].Body())
}

func TestDispatcher_PrintFailureIsContained(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{err: errors.New("terminal detached")}
	d := NewDispatcher(SenderFunc(func(context.Context, string, string) error { return nil }), sink)

	require.NoError(t, d.Run(context.Background(), feed(
		NewSendIntent("a", "1"),
		NewSendIntent("b", "2"),
	)))
	waitAll(t, d)
	assert.Empty(t, sink.Lines())
}

func TestDispatcher_ManyConcurrentSends(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 50
	start := make(chan struct{})
	sender := SenderFunc(func(_ context.Context, target, _ string) error {
		<-start
		if target == "bad" {
			return errors.New("rejected")
		}
		return nil
	})
	sink := &recordingSink{}
	d := NewDispatcher(sender, sink, WithErrorColor(false))

	intents := make([]SendIntent, 0, n)
	for i := 0; i < n; i++ {
		target := "good"
		if i%5 == 0 {
			target = "bad"
		}
		intents = append(intents, NewSendIntent(target, fmt.Sprint(i)))
	}
	require.NoError(t, d.Run(context.Background(), feed(intents...)))
	close(start)
	waitAll(t, d)

	lines := sink.Lines()
	require.Len(t, lines, n)
	var done, failed int
	for _, l := range lines {
		switch l {
		case SendDoneText:
			done++
		case "send error: rejected":
			failed++
		default:
			t.Errorf("unexpected line %q", l)
		}
	}
	assert.Equal(t, n-n/5, done)
	assert.Equal(t, n/5, failed)
}

func TestDispatcher_SendTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := SenderFunc(func(ctx context.Context, _, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	sink := &recordingSink{}
	d := NewDispatcher(sender, sink, WithSendTimeout(20*time.Millisecond), WithErrorColor(false))

	require.NoError(t, d.Run(context.Background(), feed(NewSendIntent("mute", "anyone?"))))
	waitAll(t, d)
	assert.Equal(t, []string{"send error: " + context.DeadlineExceeded.Error()}, sink.Lines())
}

func TestDispatcher_ContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(SenderFunc(func(context.Context, string, string) error { return nil }), &recordingSink{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	open := make(chan SendIntent)
	assert.ErrorIs(t, d.Run(ctx, open), context.Canceled)
}

func TestDispatcher_WaitHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	d := NewDispatcher(SenderFunc(func(context.Context, string, string) error {
		<-release
		return nil
	}), &recordingSink{})
	require.NoError(t, d.Run(context.Background(), feed(NewSendIntent("stuck", "x"))))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)
}
