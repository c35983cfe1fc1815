package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"celtrix/internal/logger"
)

// waitDelay bounds how long a cancelled command may hold its output open.
const waitDelay = 2 * time.Second

// DefaultEnvDir is the project-local isolated environment directory name.
const DefaultEnvDir = "venv"

// Options control how a single command is executed.
type Options struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// IsolatedEnv rewrites a leading python/pip invocation to the executable
	// inside Dir/EnvDir instead of the one on PATH.
	IsolatedEnv bool
	// EnvDir is the isolated environment directory relative to Dir.
	EnvDir string
	// Capture buffers output and only surfaces it on failure.
	Capture bool
}

func (o Options) envDir() string {
	if o.EnvDir == "" {
		return DefaultEnvDir
	}
	return o.EnvDir
}

// Result describes one finished command.
type Result struct {
	Command  string
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes external commands. Local is the production implementation;
// tests substitute fakes.
type Runner interface {
	// Run executes command through the system shell.
	Run(ctx context.Context, command string, opts Options) (Result, error)
	// Output runs a binary directly and returns its combined output.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// LookPath reports the absolute path of an executable on PATH.
	LookPath(name string) (string, error)
}

// Local runs commands on the host through sh -c (cmd /C on Windows).
type Local struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	goos   string
}

// NewLocal builds a runner wired to the process terminal.
func NewLocal() *Local {
	return &Local{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		goos:   runtime.GOOS,
	}
}

// Run implements Runner.
func (l *Local) Run(ctx context.Context, command string, opts Options) (Result, error) {
	final := command
	if opts.IsolatedEnv {
		final = IsolatedCommand(command, opts.Dir, opts.envDir(), l.goos)
	}
	logger.Debug("[DEBUG] Running command: %s (dir=%s, capture=%t)\n", final, opts.Dir, opts.Capture)

	cmd := l.shellCommand(ctx, final)
	cmd.Dir = opts.Dir
	// Grandchildren of a cancelled shell may keep the output pipes open.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	if opts.Capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdin = l.Stdin
		cmd.Stdout = l.Stdout
		cmd.Stderr = l.Stderr
	}

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Command:  final,
		Success:  err == nil,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}

	res.ExitCode = -1
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		// Killed by cancellation: keep both so callers can test for context.Canceled.
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	return res, &CommandExecutionError{
		Command:  command,
		Dir:      opts.Dir,
		ExitCode: res.ExitCode,
		Stderr:   strings.TrimSpace(res.Stderr),
		Err:      err,
	}
}

// Output implements Runner.
func (l *Local) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	logger.Debug("[DEBUG] Probing: %s\n", strings.Join(cmd.Args, " "))
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// LookPath implements Runner.
func (l *Local) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (l *Local) shellCommand(ctx context.Context, command string) *exec.Cmd {
	if l.goos == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "/bin/sh", "-c", command)
}

// FirstAvailable returns the first of names found on PATH.
func FirstAvailable(r Runner, names ...string) (string, error) {
	for _, name := range names {
		if _, err := r.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", &ToolNotFoundError{Names: names}
}

var _ Runner = (*Local)(nil)
