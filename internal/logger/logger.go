package logger

import (
	"os"

	"github.com/fatih/color"      // Colored console output
	"github.com/mattn/go-isatty" // Terminal detection for color output
)

// Colorized printf-style functions, one per log level.

// Info logs informational messages in cyan.
var Info = color.New(color.FgCyan).PrintfFunc()

// Success logs completed work in green.
var Success = color.New(color.FgGreen).PrintfFunc()

// Warn logs warnings in bright magenta.
var Warn = color.New(color.FgHiMagenta).PrintfFunc()

// Error logs errors in red.
var Error = color.New(color.FgRed).PrintfFunc()

// Detail prints secondary text such as next-step guidance in plain white.
var Detail = color.New(color.FgWhite).PrintfFunc()

// Debug logs debug messages in gray when enabled, otherwise is a no-op.
// Assigned by Init; a no-op until then so packages can log before the CLI starts.
var Debug = func(format string, a ...any) {}

// Init enables or disables debug logging and color output.
// Color is turned off when noColor is set or stdout is not a terminal.
func Init(enableDebug, noColor bool) {
	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
	if enableDebug {
		Debug = color.New(color.FgHiBlack).PrintfFunc()
	} else {
		Debug = func(format string, a ...any) {}
	}
}

// Step prints a progress line for step i of n, e.g. "[2/9] Upgrading pip...".
func Step(i, n int, name string) {
	Info("[%d/%d] %s...\n", i, n, name)
}

// Done prints the success marker for a finished step.
func Done(name string) {
	Success("✔ %s completed\n", name)
}

// Failed prints the failure marker for a step.
func Failed(name string) {
	Error("✖ %s failed\n", name)
}
