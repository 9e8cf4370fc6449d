package console

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Console bundles the input reader, the shared output sink and the error
// channel for one interactive session.
type Console struct {
	Reader LineReader
	Sink   *Sink
	// Errors is the independent error channel (stderr), safe to use while
	// the terminal is in raw mode.
	Errors io.Writer
	// History holds the lines the reader recorded during this session.
	History *History

	restore func() error
}

// Open sets up the console on the given files. When both stdin and stdout are
// terminals, stdin is put into raw mode and an x/term Terminal provides line
// editing; otherwise lines are scanned from stdin as-is, without prompts.
func Open(stdin, stdout, stderr *os.File) (*Console, error) {
	inFd, outFd := int(stdin.Fd()), int(stdout.Fd())

	if !term.IsTerminal(inFd) || !term.IsTerminal(outFd) {
		reader := NewScanReader(stdin, nil)
		return &Console{
			Reader:  reader,
			Sink:    NewSink(stdout),
			Errors:  stderr,
			History: &reader.History,
		}, nil
	}

	state, err := term.MakeRaw(inFd)
	if err != nil {
		return nil, fmt.Errorf("console: enter raw mode: %w", err)
	}

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{stdin, stdout}, "")
	if w, h, err := term.GetSize(outFd); err == nil {
		_ = t.SetSize(w, h)
	}

	reader := NewTerminalReader(t)
	return &Console{
		Reader:  reader,
		Sink:    NewSink(t),
		Errors:  NewCRLFWriter(stderr),
		History: &reader.History,
		restore: func() error { return term.Restore(inFd, state) },
	}, nil
}

// Close closes the sink and restores the terminal mode.
func (c *Console) Close() error {
	_ = c.Sink.Close()
	if c.restore == nil {
		return nil
	}
	if err := c.restore(); err != nil {
		slog.Error("console: restore terminal", "err", err)
		return err
	}
	return nil
}

// CRLFWriter translates "\n" to "\r\n", which a terminal in raw mode needs to
// return the cursor to column zero.
type CRLFWriter struct {
	w io.Writer
}

func NewCRLFWriter(w io.Writer) *CRLFWriter {
	return &CRLFWriter{w: w}
}

func (c *CRLFWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
