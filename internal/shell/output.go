package shell

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes status lines for the operator. Colours follow
// color.NoColor, which is set when the output is not a terminal.
type Printer struct {
	out     io.Writer
	success *color.Color
	failure *color.Color
	info    *color.Color
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		out:     w,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		info:    color.New(color.FgCyan),
	}
}

// Success prints a completed operation.
func (p *Printer) Success(format string, args ...any) {
	p.success.Fprintln(p.out, fmt.Sprintf(format, args...))
}

// Error prints a failure.
func (p *Printer) Error(format string, args ...any) {
	p.failure.Fprintln(p.out, fmt.Sprintf(format, args...))
}

// Info prints anything else.
func (p *Printer) Info(format string, args ...any) {
	p.info.Fprintln(p.out, fmt.Sprintf(format, args...))
}
