package stack

import (
	"path"
	"slices"
	"strings"

	"celtrix/internal/config"
	"celtrix/internal/envfile"
)

// ID identifies a supported stack.
type ID string

const (
	MERN                  ID = "mern"
	MERNTailwindAuth      ID = "mern+tailwind+auth"
	MEVN                  ID = "mevn"
	MEVNTailwindAuth      ID = "mevn+tailwind+auth"
	MEAN                  ID = "mean"
	MEANTailwindAuth      ID = "mean+tailwind+auth"
	ReactTailwindFirebase ID = "react+tailwind+firebase"
	Hono                  ID = "hono"
	T3                    ID = "t3-stack"
	DjangoReact           ID = "django-react"
)

// All lists every stack in display order. The registry refuses to load
// unless each one has exactly one definition.
var All = []ID{
	MERN, MERNTailwindAuth,
	MEVN, MEVNTailwindAuth,
	MEAN, MEANTailwindAuth,
	ReactTailwindFirebase,
	Hono,
	T3,
	DjangoReact,
}

// Requirement is a prerequisite tool with an optional version constraint,
// e.g. {Tool: "python", Version: ">= 3.8"}. Tool "pm" stands for the selected
// package manager.
type Requirement struct {
	Tool    string `yaml:"tool"`
	Version string `yaml:"version"`
	Hint    string `yaml:"hint"`
}

// Step is one external command in a stack's setup sequence.
type Step struct {
	Name        string            `yaml:"name"`
	Command     string            `yaml:"command"`
	Cwd         string            `yaml:"cwd"`
	IsolatedEnv bool              `yaml:"isolatedEnv"`
	Silent      bool              `yaml:"silent"`
	Languages   []config.Language `yaml:"languages"`
	Install     bool              `yaml:"install"`
}

// AppliesTo reports whether the step runs for lang. Steps without a
// language list run for every language.
func (s Step) AppliesTo(lang config.Language) bool {
	if len(s.Languages) == 0 {
		return true
	}
	for _, l := range s.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Definition describes how to scaffold one stack.
type Definition struct {
	ID           ID                `yaml:"id"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	Languages    []config.Language `yaml:"languages"`
	Requirements []Requirement     `yaml:"requirements"`
	SetupSteps   []Step            `yaml:"steps"`
	Patches      []string          `yaml:"patches"`
	Env          []envfile.Kind    `yaml:"env"`
	NextSteps    []string          `yaml:"nextSteps"`
}

// DefaultLanguage is the first listed language.
func (d Definition) DefaultLanguage() config.Language {
	if len(d.Languages) == 0 {
		return config.JavaScript
	}
	return d.Languages[0]
}

// Supports reports whether lang is one of the stack's languages.
func (d Definition) Supports(lang config.Language) bool {
	for _, l := range d.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Steps returns the ordered setup steps for lang, leaving out install steps
// when skipInstall is set.
func (d Definition) Steps(lang config.Language, skipInstall bool) []Step {
	var steps []Step
	for _, s := range d.SetupSteps {
		if !s.AppliesTo(lang) {
			continue
		}
		if skipInstall && s.Install {
			continue
		}
		steps = append(steps, s)
	}
	return steps
}

// installVerb is the placeholder that starts a step adding npm packages.
const installVerb = "{{pmInstall}}"

// Dependencies returns the packages a "{{pmInstall}} ..." step adds and
// whether they are dev dependencies. Other steps return nil.
func (s Step) Dependencies() (packages []string, dev bool) {
	fields := strings.Fields(s.Command)
	if len(fields) == 0 || fields[0] != installVerb {
		return nil, false
	}
	for _, f := range fields[1:] {
		switch {
		case f == "-D" || f == "--save-dev" || f == "--dev":
			dev = true
		case strings.HasPrefix(f, "-"):
			// other flags do not name packages
		default:
			packages = append(packages, f)
		}
	}
	return packages, dev
}

// RelDir is the step's working directory relative to the project root,
// slash separated. Steps without a cwd run in the root, ".".
func (s Step) RelDir() string {
	if s.Cwd == "" {
		return "."
	}
	return path.Clean(Expand(s.Cwd, Vars{ProjectPath: "."}))
}

// Declaration is the package list of an install step that --skip-install
// leaves out. It is written to Dir/package.json instead of being installed.
type Declaration struct {
	Step     string
	Dir      string // relative to the project root, slash separated
	Packages []string
	Dev      bool
}

// Declarations returns, in step order, the packages of the install steps
// for lang, so a skipped install still leaves every import declared.
func (d Definition) Declarations(lang config.Language) []Declaration {
	var out []Declaration
	for _, s := range d.SetupSteps {
		if !s.Install || !s.AppliesTo(lang) {
			continue
		}
		pkgs, dev := s.Dependencies()
		if len(pkgs) == 0 {
			continue
		}
		out = append(out, Declaration{Step: s.Name, Dir: s.RelDir(), Packages: pkgs, Dev: dev})
	}
	return out
}

// InstallDirs lists, once each and in step order, the directories whose
// install steps apply to lang. With --skip-install the user runs the package
// manager there later.
func (d Definition) InstallDirs(lang config.Language) []string {
	var dirs []string
	for _, s := range d.SetupSteps {
		if !s.Install || !s.AppliesTo(lang) {
			continue
		}
		if dir := s.RelDir(); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
