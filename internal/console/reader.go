package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/term"
)

// ErrInputClosed is returned once the line source is exhausted or broken.
var ErrInputClosed = errors.New("console: input closed")

// LineReader is the blocking input side of the console.
type LineReader interface {
	// ReadLine shows prompt and blocks until one line is entered.
	ReadLine(prompt string) (string, error)
	// AddHistory records line for later recall.
	AddHistory(line string)
}

// History is an append-only, in-memory list of entered lines.
type History struct {
	mu      sync.Mutex
	entries []string
}

func (h *History) Add(line string) {
	h.mu.Lock()
	h.entries = append(h.entries, line)
	h.mu.Unlock()
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns a copy of all recorded lines, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// TerminalReader reads lines through an x/term Terminal with line editing.
type TerminalReader struct {
	term    *term.Terminal
	History History
}

func NewTerminalReader(t *term.Terminal) *TerminalReader {
	return &TerminalReader{term: t}
}

func (r *TerminalReader) ReadLine(prompt string) (string, error) {
	r.term.SetPrompt(prompt)
	line, err := r.term.ReadLine()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInputClosed, err)
	}
	return line, nil
}

// AddHistory records line. The Terminal's arrow-key recall ring is separate:
// it keeps every entered line, directives included.
func (r *TerminalReader) AddHistory(line string) {
	r.History.Add(line)
}

// ScanReader reads lines from a plain stream such as a pipe or file.
type ScanReader struct {
	scanner *bufio.Scanner
	prompt  io.Writer
	History History
}

// NewScanReader reads from in and writes prompts to prompt (nil disables prompts).
func NewScanReader(in io.Reader, prompt io.Writer) *ScanReader {
	return &ScanReader{scanner: bufio.NewScanner(in), prompt: prompt}
}

func (r *ScanReader) ReadLine(prompt string) (string, error) {
	if r.prompt != nil {
		_, _ = io.WriteString(r.prompt, prompt)
	}
	if !r.scanner.Scan() {
		err := r.scanner.Err()
		if err == nil {
			err = io.EOF
		}
		return "", fmt.Errorf("%w: %w", ErrInputClosed, err)
	}
	return r.scanner.Text(), nil
}

func (r *ScanReader) AddHistory(line string) {
	r.History.Add(line)
}
