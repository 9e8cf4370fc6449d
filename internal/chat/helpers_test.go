package chat

import (
	"fmt"
	"io"
	"sync"

	"github.com/sbchat/sbchat/internal/console"
)

// scriptReader serves queued lines and reports EOF once lines is closed.
type scriptReader struct {
	lines chan string

	mu      sync.Mutex
	prompts []string
	history []string
	reads   int
}

func newScriptReader(lines ...string) *scriptReader {
	r := &scriptReader{lines: make(chan string, len(lines)+16)}
	for _, l := range lines {
		r.lines <- l
	}
	return r
}

// endAfterScript closes the reader so the next read past the script fails.
func (r *scriptReader) endAfterScript() *scriptReader {
	close(r.lines)
	return r
}

func (r *scriptReader) ReadLine(prompt string) (string, error) {
	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	r.reads++
	r.mu.Unlock()

	line, ok := <-r.lines
	if !ok {
		return "", fmt.Errorf("%w: %w", console.ErrInputClosed, io.EOF)
	}
	return line, nil
}

func (r *scriptReader) AddHistory(line string) {
	r.mu.Lock()
	r.history = append(r.history, line)
	r.mu.Unlock()
}

func (r *scriptReader) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

func (r *scriptReader) snapshot() (prompts, history []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prompts...), append([]string(nil), r.history...)
}

// recordingSink collects printed lines, optionally failing every print.
type recordingSink struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (s *recordingSink) Print(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lines = append(s.lines, line)
	return nil
}

func (s *recordingSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// syncBuffer is a goroutine-safe hint writer.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
