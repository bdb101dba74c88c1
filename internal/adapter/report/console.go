// Package report formats measurement output. Labels and widths match
// the classic ipcbuf column layout so runs stay diffable across
// platforms and versions.
package report

import (
	"fmt"
	"io"
)

// Console writes labeled metrics and progress lines to w. In quiet
// mode everything is suppressed except the final byte total.
type Console struct {
	w     io.Writer
	quiet bool
}

// NewConsole creates a reporter writing to w.
func NewConsole(w io.Writer, quiet bool) *Console {
	return &Console{w: w, quiet: quiet}
}

// Metric prints one labeled integer value.
func (c *Console) Metric(label string, value int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.w, "%-15s: %8d\n", label, value)
}

// Progress prints the outcome of a single write attempt.
func (c *Console) Progress(wrote, wanted, total int) {
	if c.quiet {
		return
	}
	plural, pad := "s", ""
	if wanted <= 1 {
		plural, pad = "", " "
	}
	fmt.Fprintf(c.w, "Wrote %8d out of %8d byte%s. %s(Total: %8d)\n",
		wrote, wanted, plural, pad, total)
}

// Printf prints free-form text.
func (c *Console) Printf(format string, args ...any) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.w, format, args...)
}

// Final prints the observed write total. This is the only line that
// survives quiet mode.
func (c *Console) Final(total int) {
	if c.quiet {
		fmt.Fprintf(c.w, "%d\n", total)
		return
	}
	fmt.Fprintf(c.w, "Observed total : %8d\n\n", total)
}
