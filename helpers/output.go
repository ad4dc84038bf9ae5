package helpers

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Console prints the installer progress for the operator.
type Console struct {
	Out io.Writer
}

// NewConsole returns a console writing to w, or to the color-aware stdout
// when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = color.Output
	}
	return &Console{Out: w}
}

// Step announces a new stage of the installation.
func (c *Console) Step(title string) {
	fmt.Fprintf(c.Out, "\n %s %s...\n\n", color.YellowString("▶"), title)
}

func (c *Console) Println(a ...interface{}) {
	fmt.Fprintln(c.Out, a...)
}

func (c *Console) Printf(format string, a ...interface{}) {
	fmt.Fprintf(c.Out, format, a...)
}

// Warn prints a non-fatal problem.
func (c *Console) Warn(format string, a ...interface{}) {
	fmt.Fprintf(c.Out, "%s %s\n", color.YellowString("WARN:"), fmt.Sprintf(format, a...))
}

// Fail prints a fatal problem.
func (c *Console) Fail(format string, a ...interface{}) {
	fmt.Fprintf(c.Out, "%s %s\n", color.RedString("FAIL:"), fmt.Sprintf(format, a...))
}

// Done prints a success line.
func (c *Console) Done(format string, a ...interface{}) {
	fmt.Fprintf(c.Out, " %s %s\n", color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// Item prints an indented list entry.
func (c *Console) Item(format string, a ...interface{}) {
	fmt.Fprintf(c.Out, "  → %s\n", fmt.Sprintf(format, a...))
}
