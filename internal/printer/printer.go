// Package printer writes human-facing command output with status styling.
// Commands fetch the printer from their context so tests can capture it.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/sage/internal/core/styles"
)

type ctxKey struct{}

// Printer writes messages to out and errors to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	plain  bool
}

// New returns a printer. Plain printers skip styling.
func New(out, errOut io.Writer, plain bool) *Printer {
	return &Printer{out: out, errOut: errOut, plain: plain}
}

// NewContext stores p in ctx.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer stored in ctx, or one writing to the process
// streams.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stdout, os.Stderr, false)
}

func (p *Printer) styled(style lipgloss.Style, icon, format string, args []any) string {
	msg := fmt.Sprintf(format, args...)
	if p.plain {
		return icon + " " + msg
	}
	return style.Render(icon) + " " + msg
}

// Printf writes a plain line.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Successf writes a success line.
func (p *Printer) Successf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, p.styled(styles.TextSuccessStyle, "✔", format, args))
}

// Infof writes an informational line.
func (p *Printer) Infof(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, p.styled(styles.TextPrimaryStyle, "•", format, args))
}

// Warnf writes a warning to the error stream.
func (p *Printer) Warnf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.errOut, p.styled(styles.TextWarningStyle, "!", format, args))
}

// Errorf writes an error to the error stream.
func (p *Printer) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.errOut, p.styled(styles.TextErrorStyle, "✘", format, args))
}
