// Package console owns the terminal: a blocking line reader for the input
// goroutine and a shared, serialized output Sink for everything else.
package console

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrSinkClosed is returned by Print after the Sink has been closed.
var ErrSinkClosed = errors.New("console: sink closed")

// SinkError reports a failed write to the underlying output device.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string { return fmt.Sprintf("console: write failed: %v", e.Err) }

func (e *SinkError) Unwrap() error { return e.Err }

// Sink is the single shared output surface. Every write holds the lock for
// its whole duration, so two printed lines never interleave.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewSink wraps w. When w is an x/term Terminal, each write also redraws the
// prompt and the in-progress input line beneath the printed text.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Print writes line followed by a newline as one atomic unit.
func (s *Sink) Print(line string) error {
	_, err := s.Write([]byte(line + "\n"))
	return err
}

// Write implements io.Writer with the same exclusion as Print.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSinkClosed
	}
	n, err := s.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, &SinkError{Err: err}
	}
	return n, nil
}

// Close marks the sink unusable. Writers blocked on the lock see
// ErrSinkClosed once they acquire it.
func (s *Sink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
