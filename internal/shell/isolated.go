package shell

import (
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
)

// isolatedTools are the command prefixes resolved inside an isolated environment.
var isolatedTools = map[string]bool{
	"python":       true,
	"python3":      true,
	"pip":          true,
	"pip3":         true,
	"django-admin": true,
}

// IsolatedCommand rewrites the leading tool of command to its executable inside
// dir/envDir. Commands that do not start with a recognised tool are returned as-is.
func IsolatedCommand(command, dir, envDir, goos string) string {
	trimmed := strings.TrimLeft(command, " \t")
	args, err := shellwords.Parse(trimmed)
	if err != nil || len(args) == 0 {
		return command
	}
	tool := args[0]
	if !isolatedTools[tool] || !strings.HasPrefix(trimmed, tool) {
		return command
	}
	return quote(IsolatedExecutable(dir, envDir, tool, goos)) + strings.TrimPrefix(trimmed, tool)
}

// IsolatedExecutable returns the path of tool inside the isolated environment,
// bin/ on Unix and Scripts\ with an .exe suffix on Windows.
func IsolatedExecutable(dir, envDir, tool, goos string) string {
	if goos == "windows" {
		parts := []string{strings.TrimRight(dir, `\/`), envDir, "Scripts", tool + ".exe"}
		if dir == "" {
			parts = parts[1:]
		}
		return strings.Join(parts, `\`)
	}
	return filepath.Join(dir, envDir, "bin", tool)
}

func quote(path string) string {
	if strings.ContainsAny(path, " \t") {
		return `"` + path + `"`
	}
	return path
}
