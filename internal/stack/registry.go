package stack

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"celtrix/internal/envfile"
	"celtrix/internal/patch"
)

//go:embed stacks.yaml
var stacksYAML []byte

// Registry is the immutable table of stack definitions. Build it once at
// start-up and pass it to whatever needs lookups.
type Registry struct {
	defs  map[ID]Definition
	order []ID
}

// NewRegistry loads the built-in stack table.
func NewRegistry() (*Registry, error) {
	return Parse(stacksYAML)
}

// Parse loads a stack table from YAML. Every ID in All must be defined.
func Parse(data []byte) (*Registry, error) {
	var doc struct {
		Stacks []Definition `yaml:"stacks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse stack table: %w", err)
	}
	r, err := build(doc.Stacks, true)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// FromDefinitions builds a registry from in-memory definitions without
// requiring every built-in stack to be present.
func FromDefinitions(defs ...Definition) (*Registry, error) {
	return build(defs, false)
}

func build(defs []Definition, requireAll bool) (*Registry, error) {
	r := &Registry{defs: make(map[ID]Definition, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("stack %q has no id", d.Name)
		}
		if requireAll && !slices.Contains(All, d.ID) {
			return nil, fmt.Errorf("stack table defines unknown stack %q", d.ID)
		}
		if _, dup := r.defs[d.ID]; dup {
			return nil, fmt.Errorf("stack %q is defined twice", d.ID)
		}
		if err := validate(d); err != nil {
			return nil, fmt.Errorf("stack %q: %w", d.ID, err)
		}
		r.defs[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	// The built-in table must cover every ID and is listed in All's order.
	if requireAll {
		for _, id := range All {
			if _, ok := r.defs[id]; !ok {
				return nil, fmt.Errorf("stack table is missing stack %q", id)
			}
		}
		r.order = slices.Clone(All)
	}
	return r, nil
}

func validate(d Definition) error {
	if len(d.SetupSteps) == 0 {
		return fmt.Errorf("no setup steps")
	}
	if len(d.Languages) == 0 {
		return fmt.Errorf("no languages")
	}
	for _, s := range d.SetupSteps {
		if s.Name == "" || s.Command == "" {
			return fmt.Errorf("step %q needs a name and a command", s.Name)
		}
		// A step with no languages runs for all of them.
		for _, l := range s.Languages {
			if !d.Supports(l) {
				return fmt.Errorf("step %q targets unsupported language %q", s.Name, l)
			}
		}
	}
	for _, name := range d.Patches {
		if !patch.Known(name) {
			return fmt.Errorf("unknown file modification %q", name)
		}
	}
	if err := validateDependencies(d); err != nil {
		return err
	}
	for _, kind := range d.Env {
		if !envfile.Valid(kind) {
			return fmt.Errorf("unknown env kind %q", kind)
		}
	}
	return nil
}

// Lookup returns the definition for id. The returned value does not share
// slices with the registry.
func (r *Registry) Lookup(id ID) (Definition, bool) {
	d, ok := r.defs[id]
	if !ok {
		return Definition{}, false
	}
	d.Languages = slices.Clone(d.Languages)
	d.Requirements = slices.Clone(d.Requirements)
	d.SetupSteps = slices.Clone(d.SetupSteps)
	for i := range d.SetupSteps {
		d.SetupSteps[i].Languages = slices.Clone(d.SetupSteps[i].Languages)
	}
	d.Patches = slices.Clone(d.Patches)
	d.Env = slices.Clone(d.Env)
	d.NextSteps = slices.Clone(d.NextSteps)
	return d, true
}

// IDs returns the registered stack ids in display order.
func (r *Registry) IDs() []ID {
	return slices.Clone(r.order)
}

// FileModifications binds the stack's named patches to params, in declared order.
func (d Definition) FileModifications(params patch.Params) ([]patch.Modification, error) {
	out := make([]patch.Modification, 0, len(d.Patches))
	for _, name := range d.Patches {
		m, err := patch.Build(name, params)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// validateDependencies checks, per language, that every npm package imported
// by the stack's file modifications is added by one of its install steps.
// Those steps are the ones recorded in package.json under --skip-install.
func validateDependencies(d Definition) error {
	for _, lang := range d.Languages {
		declared := map[string]bool{}
		for _, decl := range d.Declarations(lang) {
			for _, p := range decl.Packages {
				declared[p] = true
			}
		}
		for _, name := range d.Patches {
			for _, pkg := range patch.Requires(name, lang) {
				if !declared[pkg] {
					return fmt.Errorf("file modification %q needs %s for %s but no install step adds it", name, pkg, lang)
				}
			}
		}
	}
	return nil
}
