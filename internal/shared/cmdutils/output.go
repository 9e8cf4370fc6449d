package cmdutils

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const Logo = "💬"

var (
	hint  = color.New(color.FgHiBlack)
	ok    = color.New(color.FgGreen)
	fail  = color.New(color.FgRed)
	title = color.New(color.FgCyan, color.Bold)
)

// Banner writes a one-line title prefixed with the logo. Sinks that reject
// the write are ignored.
func Banner(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", Logo, title.Sprintf(format, args...))
}

func HintText(s string) string { return hint.Sprint(s) }

func ErrorText(s string) string { return fail.Sprint(s) }

// Mark renders a check or cross.
func Mark(good bool) string {
	if good {
		return ok.Sprint("✓")
	}
	return fail.Sprint("✗")
}
