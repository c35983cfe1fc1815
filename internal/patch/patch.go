package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"celtrix/internal/config"
	"celtrix/internal/logger"
)

// searchDirs are the conventional subdirectories searched for an existing
// target file, in order.
var searchDirs = []string{".", "config", "settings", "src"}

// Target names the file a patch operates on.
type Target struct {
	// Dir is relative to the project root, slash separated.
	Dir string
	// Files are candidate file names; the first one found wins. Create
	// targets always use Files[0].
	Files []string
	// Create targets are written at Dir/Files[0] when absent, provided
	// Anchor (default Dir) exists. Edit targets are skipped when absent.
	Create bool
	Anchor string
}

// Patch is one text transformation of one generated file. Apply must be
// idempotent: applying it to its own output returns that output unchanged.
type Patch interface {
	Name() string
	Target() Target
	// Apply receives the current content ("" for a file about to be
	// created) and returns the new content.
	Apply(content string) (string, error)
}

// Params carry project-specific values into patches.
type Params struct {
	ProjectName string
	Language    config.Language
	Env         config.EnvSettings
	// BackendOrigin is the dev server the client proxies /api to.
	BackendOrigin string
}

// TypeScript reports whether generated source files should be TypeScript.
func (p Params) TypeScript() bool {
	return p.Language == config.TypeScript
}

// Outcome reports what Apply did with a file.
type Outcome int

const (
	// Skipped means the target does not exist for this project.
	Skipped Outcome = iota
	// Unchanged means the file already had the patch applied.
	Unchanged
	// Applied means the file was written.
	Applied
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Unchanged:
		return "unchanged"
	default:
		return "skipped"
	}
}

// Resolve finds the file for t under projectPath. It returns "" when the
// target is not applicable. exists is false for create targets that are
// about to be written.
func Resolve(projectPath string, t Target) (path string, exists bool, err error) {
	dir := filepath.Join(projectPath, filepath.FromSlash(t.Dir))
	if len(t.Files) == 0 {
		return "", false, nil
	}

	if t.Create {
		path = filepath.Join(dir, t.Files[0])
		ok, err := isFile(path)
		if err != nil || ok {
			return path, ok, err
		}
		anchor := dir
		if t.Anchor != "" {
			anchor = filepath.Join(projectPath, filepath.FromSlash(t.Anchor))
		}
		ok, err = isDir(anchor)
		if err != nil || !ok {
			return "", false, err
		}
		return path, false, nil
	}

	for _, name := range t.Files {
		for _, sub := range searchDirs {
			candidate := filepath.Join(dir, sub, name)
			ok, err := isFile(candidate)
			if err != nil {
				return "", false, err
			}
			if ok {
				return candidate, true, nil
			}
		}
	}
	return "", false, nil
}

// Apply runs p against its target under projectPath. A missing target is
// not an error; unexpected I/O failures are.
func Apply(projectPath string, p Patch) (Outcome, error) {
	path, exists, err := Resolve(projectPath, p.Target())
	if err != nil {
		return Skipped, err
	}
	if path == "" {
		logger.Debug("[DEBUG] %s: target not present, skipping\n", p.Name())
		return Skipped, nil
	}

	var content string
	if exists {
		data, err := os.ReadFile(path)
		if err != nil {
			return Skipped, fmt.Errorf("failed to read %s: %w", path, err)
		}
		content = string(data)
	}

	updated, err := p.Apply(content)
	if err != nil {
		return Skipped, fmt.Errorf("%s: %w", path, err)
	}
	if exists && updated == content {
		logger.Debug("[DEBUG] %s: %s already up to date\n", p.Name(), path)
		return Unchanged, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Skipped, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return Skipped, fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Debug("[DEBUG] %s: wrote %s\n", p.Name(), path)
	return Applied, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || isNotDir(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || isNotDir(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// isNotDir reports failures where a path component is a regular file.
func isNotDir(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}

// Modification is a named group of patches, the unit a stack declares.
type Modification struct {
	Name    string
	Patches []Patch
}

// Report is the outcome of one patch within a modification.
type Report struct {
	Patch   string
	Outcome Outcome
}

// Apply runs the modification's patches in order, stopping at the first error.
// Files already written stay written.
func (m Modification) Apply(projectPath string) ([]Report, error) {
	reports := make([]Report, 0, len(m.Patches))
	for _, p := range m.Patches {
		outcome, err := Apply(projectPath, p)
		if err != nil {
			return reports, err
		}
		reports = append(reports, Report{Patch: p.Name(), Outcome: outcome})
	}
	return reports, nil
}

// factory builds the patches of a named modification.
type factory func(Params) []Patch

var catalogue = map[string]factory{}

func register(name string, f factory) {
	if _, dup := catalogue[name]; dup {
		panic("patch: duplicate modification " + name)
	}
	catalogue[name] = f
}

// Known reports whether name is a registered modification.
func Known(name string) bool {
	_, ok := catalogue[name]
	return ok
}

// Names lists registered modifications, sorted.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build binds the named modification to params.
func Build(name string, params Params) (Modification, error) {
	f, ok := catalogue[name]
	if !ok {
		return Modification{}, fmt.Errorf("unknown file modification %q", name)
	}
	return Modification{Name: name, Patches: f(params)}, nil
}

// edit is the common Patch implementation backed by a function.
type edit struct {
	name   string
	target Target
	apply  func(content string) (string, error)
}

func (e edit) Name() string                         { return e.name }
func (e edit) Target() Target                       { return e.target }
func (e edit) Apply(content string) (string, error) { return e.apply(content) }

// pure adapts an infallible transformation.
func pure(f func(string) string) func(string) (string, error) {
	return func(s string) (string, error) { return f(s), nil }
}

// writeOnce returns body for a new file and leaves existing files alone.
func writeOnce(body string) func(string) (string, error) {
	return pure(func(content string) string {
		if content != "" {
			return content
		}
		return body
	})
}

// replaceWith always returns body, overwriting generator stubs.
func replaceWith(body string) func(string) (string, error) {
	return pure(func(string) string { return body })
}
