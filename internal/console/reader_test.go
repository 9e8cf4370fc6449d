package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanReader_ReadsLinesThenCloses(t *testing.T) {
	var prompts bytes.Buffer
	r := NewScanReader(strings.NewReader("hello\n  spaced  \n"), &prompts)

	line, err := r.ReadLine("=> ")
	require.NoError(t, err)
	assert.Equal(t, "hello", line)

	line, err = r.ReadLine("[peer] => ")
	require.NoError(t, err)
	assert.Equal(t, "  spaced  ", line)

	_, err = r.ReadLine("=> ")
	assert.ErrorIs(t, err, ErrInputClosed)

	assert.Equal(t, "=> [peer] => => ", prompts.String())
}

func TestScanReader_NilPrompt(t *testing.T) {
	r := NewScanReader(strings.NewReader("x\n"), nil)
	line, err := r.ReadLine("=> ")
	require.NoError(t, err)
	assert.Equal(t, "x", line)
}

func TestHistory(t *testing.T) {
	r := NewScanReader(strings.NewReader(""), nil)
	r.AddHistory("a")
	r.AddHistory("b")

	assert.Equal(t, 2, r.History.Len())
	entries := r.History.Entries()
	assert.Equal(t, []string{"a", "b"}, entries)

	entries[0] = "mutated"
	assert.Equal(t, "a", r.History.Entries()[0])
}
