package prereq

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"

	"celtrix/internal/config"
	"celtrix/internal/logger"
	"celtrix/internal/shell"
	"celtrix/internal/stack"
)

// MissingError reports a required tool that is absent or too old.
type MissingError struct {
	Tool     string
	Required string // version constraint, may be empty
	Found    string // detected version, empty when the tool is absent
	Hint     string
	Err      error
}

func (e *MissingError) Error() string {
	var msg string
	switch {
	case e.Found == "":
		msg = fmt.Sprintf("%s is required but was not found", e.Tool)
	default:
		msg = fmt.Sprintf("%s %s is installed but %s is required", e.Tool, e.Found, e.Required)
	}
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func (e *MissingError) Unwrap() error { return e.Err }

// Report is what a successful check found.
type Report struct {
	// Python is the interpreter command that answered, python3 or python.
	Python string
	// Versions maps each checked tool to its detected version.
	Versions map[string]string
}

var versionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

// ParseVersion extracts the first dotted version from a --version banner,
// e.g. "Python 3.11.4", "v20.11.0" or "pip 24.0 from ...".
func ParseVersion(out string) (string, bool) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Checker inspects the host for a stack's requirements.
type Checker struct {
	Runner         shell.Runner
	PackageManager config.PackageManager

	python string
}

// Check verifies every requirement in order and stops at the first one that
// is unmet. It never touches the filesystem. A cancelled ctx is returned as
// is, never as a MissingError.
func (c *Checker) Check(ctx context.Context, reqs []stack.Requirement) (Report, error) {
	report := Report{Versions: map[string]string{}}
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		tool, found, err := c.lookup(ctx, req)
		if err != nil {
			return report, err
		}
		if err := satisfies(req, tool, found); err != nil {
			return report, err
		}
		logger.Debug("[DEBUG] %s %s found\n", tool, found)
		report.Versions[tool] = found
	}
	report.Python = c.python
	return report, nil
}

func (c *Checker) lookup(ctx context.Context, req stack.Requirement) (tool, found string, err error) {
	tool = req.Tool
	switch req.Tool {
	case "python":
		python, err := c.resolvePython(req)
		if err != nil {
			return tool, "", err
		}
		found, err = c.version(ctx, req, tool, python, "--version")
		return tool, found, err
	case "pip":
		python, err := c.resolvePython(req)
		if err != nil {
			return tool, "", &MissingError{Tool: "pip", Required: req.Version, Hint: hint(req), Err: err}
		}
		found, err = c.version(ctx, req, tool, python, "-m", "pip", "--version")
		return tool, found, err
	case "pm":
		tool = string(c.PackageManager)
		if tool == "" {
			tool = string(config.NPM)
		}
		req.Tool = tool
	}

	if _, err := c.Runner.LookPath(tool); err != nil {
		return tool, "", &MissingError{Tool: tool, Required: req.Version, Hint: hint(req), Err: err}
	}
	found, err = c.version(ctx, req, tool, tool, "--version")
	return tool, found, err
}

func (c *Checker) resolvePython(req stack.Requirement) (string, error) {
	if c.python != "" {
		return c.python, nil
	}
	name, err := shell.FirstAvailable(c.Runner, "python3", "python")
	if err != nil {
		return "", &MissingError{Tool: "python", Required: req.Version, Hint: hint(req), Err: err}
	}
	c.python = name
	return name, nil
}

func (c *Checker) version(ctx context.Context, req stack.Requirement, tool, name string, args ...string) (string, error) {
	out, err := c.Runner.Output(ctx, name, args...)
	// A version query killed by cancellation says nothing about the tool.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", &MissingError{Tool: tool, Required: req.Version, Hint: hint(req), Err: err}
	}
	v, ok := ParseVersion(out)
	if !ok {
		if req.Version == "" {
			return strings.TrimSpace(out), nil
		}
		return "", &MissingError{
			Tool:     tool,
			Required: req.Version,
			Hint:     hint(req),
			Err:      fmt.Errorf("unrecognised version output %q", strings.TrimSpace(out)),
		}
	}
	return v, nil
}

func satisfies(req stack.Requirement, tool, found string) error {
	if req.Version == "" {
		return nil
	}
	constraint, err := version.NewConstraint(req.Version)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q for %s: %w", req.Version, tool, err)
	}
	v, err := version.NewVersion(found)
	if err != nil {
		return &MissingError{Tool: tool, Required: req.Version, Found: found, Hint: hint(req), Err: err}
	}
	if !constraint.Check(v) {
		return &MissingError{Tool: tool, Required: req.Version, Found: found, Hint: hint(req)}
	}
	return nil
}

var defaultHints = map[string]string{
	"python": "Install Python 3 from https://www.python.org/",
	"pip":    "Install pip: python -m ensurepip --upgrade",
	"node":   "Install Node.js from https://nodejs.org/",
	"npm":    "npm ships with Node.js: https://nodejs.org/",
	"yarn":   "Install yarn: npm install -g yarn",
	"pnpm":   "Install pnpm: npm install -g pnpm",
	"bun":    "Install bun from https://bun.sh/",
}

func hint(req stack.Requirement) string {
	if req.Hint != "" {
		return req.Hint
	}
	if h, ok := defaultHints[req.Tool]; ok {
		return h
	}
	return fmt.Sprintf("Install %s and make sure it is on your PATH", req.Tool)
}

// IsMissing reports whether err is, or wraps, a MissingError.
func IsMissing(err error) bool {
	var m *MissingError
	return errors.As(err, &m)
}
