package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

const progressBarWidth = 24

var _ driven.ProgressSink = (*progressPrinter)(nil)

// progressPrinter renders indexing progress. On a terminal it redraws a
// single line with a bar; otherwise it prints one line per update.
type progressPrinter struct {
	out io.Writer
	tty bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &progressPrinter{out: out, tty: tty}
}

// Report implements driven.ProgressSink.
func (p *progressPrinter) Report(message string, value float64) {
	if p.tty {
		p.redraw(message, value)
		return
	}
	if value < 0 {
		fmt.Fprintf(p.out, "[FAILED] %s\n", message)
		return
	}
	fmt.Fprintf(p.out, "[%3.0f%%] %s\n", value*100, message)
}

func (p *progressPrinter) redraw(message string, value float64) {
	if value < 0 {
		fmt.Fprintf(p.out, "\r\033[K%s\n", message)
		return
	}
	fmt.Fprintf(p.out, "\r\033[K%s %3.0f%% %s", progressBar(value), value*100, message)
	if value >= 1 {
		fmt.Fprintln(p.out)
	}
}

func progressBar(value float64) string {
	if value > 1 {
		value = 1
	}
	filled := int(value * progressBarWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", progressBarWidth-filled) + "]"
}
