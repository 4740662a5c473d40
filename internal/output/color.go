package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// SprintfFunc formats and optionally colors its output
type SprintfFunc func(format string, a ...interface{}) string

// ColorScheme provides color functions for different output elements
type ColorScheme struct {
	// Unit colors unit indexes
	Unit SprintfFunc

	// Success colors success status
	Success SprintfFunc

	// Error colors error messages
	Error SprintfFunc

	// Warning colors warning messages
	Warning SprintfFunc

	// Header colors table headers
	Header SprintfFunc

	// Duration colors duration values
	Duration SprintfFunc

	// Disabled indicates if colors are disabled
	Disabled bool
}

// NewColorScheme creates a new color scheme.
// Colors are disabled for non-TTY writers or when noColor is true.
func NewColorScheme(w io.Writer, noColor bool) *ColorScheme {
	if noColor || !isTTY(w) {
		return &ColorScheme{
			Unit:     fmt.Sprintf,
			Success:  fmt.Sprintf,
			Error:    fmt.Sprintf,
			Warning:  fmt.Sprintf,
			Header:   fmt.Sprintf,
			Duration: fmt.Sprintf,
			Disabled: true,
		}
	}

	return &ColorScheme{
		Unit:     colored(color.FgCyan, color.Bold),
		Success:  colored(color.FgGreen),
		Error:    colored(color.FgRed, color.Bold),
		Warning:  colored(color.FgYellow),
		Header:   colored(color.FgWhite, color.Bold),
		Duration: colored(color.FgBlue),
	}
}

// colored forces color on; the TTY decision was made for w, which need not
// be stdout
func colored(attrs ...color.Attribute) SprintfFunc {
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprintf
}

// isTTY checks if the writer is a terminal
func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	return isTTY(w)
}

// StatusColor returns an appropriate color function based on error status
func (cs *ColorScheme) StatusColor(hasError bool) SprintfFunc {
	if hasError {
		return cs.Error
	}
	return cs.Success
}
