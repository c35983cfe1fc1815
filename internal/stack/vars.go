package stack

import (
	"path/filepath"
	"regexp"
	"strings"

	"celtrix/internal/config"
)

// Vars are the values substituted into step commands, working directories
// and next-step text.
type Vars struct {
	ProjectPath    string
	ProjectName    string
	Python         string // python3 or python, whichever was found
	PackageManager config.PackageManager
}

// pmVerbs maps a package manager to the commands it uses for each placeholder.
var pmVerbs = map[config.PackageManager]struct {
	install, create, exec, init, createSep string
}{
	config.NPM:  {"npm install", "npm create", "npx --yes", "npm init -y", "-- "},
	config.Yarn: {"yarn add", "yarn create", "npx --yes", "yarn init -y", ""},
	config.PNPM: {"pnpm add", "pnpm create", "pnpm dlx", "pnpm init", ""},
	config.Bun:  {"bun add", "bun create", "bunx", "bun init -y", ""},
}

func (v Vars) replacer() *strings.Replacer {
	pm := v.PackageManager
	// Unknown managers fall back to npm; config validation rejects them earlier.
	if _, ok := pmVerbs[pm]; !ok {
		pm = config.NPM
	}
	verbs := pmVerbs[pm]
	python := v.Python
	if python == "" {
		python = "python3"
	}
	// {{pm}} is listed last; the replacer prefers the earliest matching old
	// string, so the longer {{pm...}} tokens win.
	return strings.NewReplacer(
		"{{projectPath}}", v.ProjectPath,
		"{{projectName}}", v.ProjectName,
		"{{python}}", python,
		"{{pmInstall}}", verbs.install,
		"{{pmCreate}}", verbs.create,
		"{{pmExec}}", verbs.exec,
		"{{pmInit}}", verbs.init,
		"{{createSep}}", verbs.createSep,
		"{{pm}}", string(pm),
	)
}

// Expand substitutes every known placeholder in s.
func Expand(s string, v Vars) string {
	return v.replacer().Replace(s)
}

var placeholderPattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// Unresolved returns any {{...}} tokens left in s.
func Unresolved(s string) []string {
	return placeholderPattern.FindAllString(s, -1)
}

// ResolvedStep is a step with its placeholders expanded.
type ResolvedStep struct {
	Step
	Command string
	Dir     string
}

// Resolve expands the steps of d for lang. A step without a cwd runs in the
// project directory.
func (d Definition) Resolve(lang config.Language, skipInstall bool, v Vars) []ResolvedStep {
	steps := d.Steps(lang, skipInstall)
	out := make([]ResolvedStep, 0, len(steps))
	for _, s := range steps {
		dir := v.ProjectPath
		if s.Cwd != "" {
			dir = filepath.FromSlash(Expand(s.Cwd, v))
		}
		out = append(out, ResolvedStep{
			Step:    s,
			Command: Expand(s.Command, v),
			Dir:     dir,
		})
	}
	return out
}

// RenderNextSteps expands the stack's next-step guidance.
func (d Definition) RenderNextSteps(v Vars) []string {
	out := make([]string, len(d.NextSteps))
	for i, line := range d.NextSteps {
		out[i] = Expand(line, v)
	}
	return out
}
