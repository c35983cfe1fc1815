package shell

import (
	"fmt"
	"strings"
)

// CommandExecutionError reports a command that exited non-zero or could not start.
type CommandExecutionError struct {
	Command  string
	Dir      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandExecutionError) Error() string {
	msg := fmt.Sprintf("failed to execute %q", e.Command)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandExecutionError) Unwrap() error { return e.Err }

// ToolNotFoundError reports that none of the candidate executables is on PATH.
type ToolNotFoundError struct {
	Names []string
}

func (e *ToolNotFoundError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("%s not found in PATH", e.Names[0])
	}
	return fmt.Sprintf("none of %s found in PATH", strings.Join(e.Names, ", "))
}
