package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"celtrix/internal/archive"
	"celtrix/internal/config"
	"celtrix/internal/envfile"
	"celtrix/internal/logger"
	"celtrix/internal/manifest"
	"celtrix/internal/patch"
	"celtrix/internal/prereq"
	"celtrix/internal/shell"
	"celtrix/internal/stack"
)

// StepResult is one executed setup command.
type StepResult struct {
	Name     string
	Command  string
	Dir      string
	Duration time.Duration
}

// Result describes a run, successful or not.
type Result struct {
	Phase       Phase
	ProjectPath string
	Stack       stack.Definition
	Language    config.Language
	Tools       map[string]string
	Steps       []StepResult
	Patches     []string
	EnvFiles    []string
	NextSteps   []string
}

// Orchestrator turns a ProjectConfig into a populated project directory.
// A run either completes or leaves no project directory behind.
type Orchestrator struct {
	Registry *stack.Registry
	Runner   shell.Runner
	// Version is recorded in the project manifest.
	Version string
	Now     func() time.Time
}

// New builds an orchestrator for registry that runs commands through runner.
func New(registry *stack.Registry, runner shell.Runner, version string) *Orchestrator {
	return &Orchestrator{Registry: registry, Runner: runner, Version: version, Now: time.Now}
}

func (o *Orchestrator) transition(res *Result, next Phase) {
	logger.Debug("[DEBUG] phase %s -> %s\n", res.Phase, next)
	res.Phase = next
}

// Create scaffolds cfg. Validation failures happen before anything is
// written; any failure after the directory is created removes it again.
func (o *Orchestrator) Create(ctx context.Context, cfg config.ProjectConfig) (res *Result, err error) {
	res = &Result{Tools: map[string]string{}}
	o.transition(res, Validating)
	defer func() {
		if err != nil {
			o.transition(res, Failed)
		}
	}()

	plan, err := o.Plan(cfg)
	if err != nil {
		return res, err
	}
	res.Stack = plan.Def
	res.Language = plan.Language

	if err := interrupted(ctx); err != nil {
		return res, err
	}
	checker := &prereq.Checker{Runner: o.Runner, PackageManager: plan.PackageManager}
	report, err := checker.Check(ctx, plan.Def.Requirements)
	if err != nil {
		return res, err
	}
	res.Tools = report.Versions

	path, err := filepath.Abs(cfg.Path())
	if err != nil {
		return res, fmt.Errorf("failed to resolve project path: %w", err)
	}
	res.ProjectPath = path
	if err := interrupted(ctx); err != nil {
		return res, err
	}
	if err := createDir(path); err != nil {
		return res, err
	}
	o.transition(res, DirectoryCreated)
	defer func() {
		if err == nil {
			return
		}
		logger.Warn("Removing %s\n", path)
		if rmErr := os.RemoveAll(path); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to remove %s: %w", path, rmErr))
		}
	}()

	vars := stack.Vars{
		ProjectPath:    path,
		ProjectName:    cfg.Name,
		Python:         report.Python,
		PackageManager: plan.PackageManager,
	}

	o.transition(res, CommandsRunning)
	if err := o.runSteps(ctx, res, plan, vars); err != nil {
		return res, err
	}

	if cfg.Template != "" {
		logger.Info("Applying template %s...\n", cfg.Template)
		n, err := archive.Overlay(cfg.Template, path)
		if err != nil {
			return res, fmt.Errorf("failed to apply template: %w", err)
		}
		logger.Debug("[DEBUG] template wrote %d files\n", n)
	}

	if plan.SkipInstall {
		if err := o.declareDependencies(res, plan); err != nil {
			return res, err
		}
	}
	if err := interrupted(ctx); err != nil {
		return res, err
	}

	values := envfile.Defaults(plan.Def.Env, cfg.Name, cfg.Env)
	if err := o.applyPatches(res, plan, cfg.Name, values); err != nil {
		return res, err
	}
	o.transition(res, FilesPatched)

	for _, kind := range plan.Def.Env {
		if _, err := envfile.Generate(kind, path, values); err != nil {
			return res, fmt.Errorf("failed to generate %s env file: %w", kind, err)
		}
		res.EnvFiles = append(res.EnvFiles, filepath.ToSlash(envfile.RelPath(kind)))
	}
	o.transition(res, EnvGenerated)

	if err := manifest.Save(path, o.manifest(cfg, plan, res)); err != nil {
		return res, err
	}
	// An interrupt that arrives after the last command still fails the run.
	if err := interrupted(ctx); err != nil {
		return res, err
	}

	res.NextSteps = o.nextSteps(plan, vars)
	o.transition(res, Done)
	return res, nil
}

// Plan is a validated ProjectConfig bound to its stack definition.
type Plan struct {
	Def            stack.Definition
	Language       config.Language
	PackageManager config.PackageManager
	SkipInstall    bool
}

// Plan validates cfg against the registry without touching the host.
func (o *Orchestrator) Plan(cfg config.ProjectConfig) (Plan, error) {
	if err := config.ValidateName(cfg.Name); err != nil {
		return Plan{}, &InvalidProjectNameError{Name: cfg.Name, Err: err}
	}

	def, ok := o.Registry.Lookup(stack.ID(cfg.Stack))
	if !ok {
		return Plan{}, &UnsupportedStackError{Stack: cfg.Stack, Supported: o.stackNames()}
	}

	lang := cfg.Language
	if lang == "" {
		lang = def.DefaultLanguage()
	}
	if !def.Supports(lang) {
		langs := make([]string, len(def.Languages))
		for i, l := range def.Languages {
			langs[i] = string(l)
		}
		return Plan{}, &UnsupportedStackError{Stack: cfg.Stack, Language: lang, Supported: langs}
	}

	pm := cfg.PackageManager
	if pm == "" {
		pm = config.NPM
	}
	if !pm.Valid() {
		return Plan{}, fmt.Errorf("unsupported package manager %q", pm)
	}

	if cfg.Template != "" && !archive.Supported(cfg.Template) {
		return Plan{}, fmt.Errorf("template %s is neither a directory nor a supported archive", cfg.Template)
	}
	return Plan{Def: def, Language: lang, PackageManager: pm, SkipInstall: cfg.SkipInstall}, nil
}

func (o *Orchestrator) stackNames() []string {
	ids := o.Registry.IDs()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return names
}

// createDir creates path, failing if anything already exists there.
func createDir(path string) error {
	if _, err := os.Lstat(path); err == nil {
		return &DirectoryExistsError{Path: path}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}
	// Only the project directory itself is created, so removing it on
	// failure leaves the filesystem as it was.
	parent := filepath.Dir(path)
	if info, err := os.Stat(parent); err != nil {
		return fmt.Errorf("parent directory %s: %w", parent, err)
	} else if !info.IsDir() {
		return fmt.Errorf("parent directory %s is not a directory", parent)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &DirectoryExistsError{Path: path}
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	logger.Debug("[DEBUG] created %s\n", path)
	return nil
}

func (o *Orchestrator) runSteps(ctx context.Context, res *Result, plan Plan, vars stack.Vars) error {
	steps := plan.Def.Resolve(plan.Language, plan.SkipInstall, vars)
	for i, s := range steps {
		if err := interrupted(ctx); err != nil {
			return err
		}
		logger.Step(i+1, len(steps), s.Name)
		out, err := o.Runner.Run(ctx, s.Command, shell.Options{
			Dir:         s.Dir,
			IsolatedEnv: s.IsolatedEnv,
			Capture:     s.Silent,
		})
		if err != nil {
			logger.Failed(s.Name)
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
				return errors.Join(fmt.Errorf("interrupted: %w", ctxErr), err)
			}
			return err
		}
		logger.Done(s.Name)
		res.Steps = append(res.Steps, StepResult{Name: s.Name, Command: s.Command, Dir: s.Dir, Duration: out.Duration})
	}
	return nil
}

// interrupted returns the context error once the run has been cancelled.
func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return nil
}

// declareDependencies records the packages of the skipped install steps in
// their package.json files, so the generated sources only need an install.
func (o *Orchestrator) declareDependencies(res *Result, plan Plan) error {
	for _, decl := range plan.Def.Declarations(plan.Language) {
		p := patch.Dependencies(decl.Dir, decl.Packages, decl.Dev)
		outcome, err := patch.Apply(res.ProjectPath, p)
		if err != nil {
			return &FilePatchError{Modification: "dependencies", Patch: p.Name(), Err: err}
		}
		logger.Debug("[DEBUG] %s (%s): %s\n", p.Name(), decl.Step, outcome)
	}
	return nil
}

// nextSteps renders the stack guidance, preceded by the installs the user
// still has to run when they were skipped.
func (o *Orchestrator) nextSteps(plan Plan, vars stack.Vars) []string {
	var out []string
	if plan.SkipInstall {
		for _, dir := range plan.Def.InstallDirs(plan.Language) {
			out = append(out, stack.Expand("cd "+filepath.ToSlash(filepath.Join("{{projectName}}", dir))+" && {{pm}} install", vars))
		}
	}
	return append(out, plan.Def.RenderNextSteps(vars)...)
}

// backendOrigin is where the generated client proxies /api during development.
func backendOrigin(def stack.Definition) string {
	if slices.Contains(def.Env, envfile.Django) {
		return "http://localhost:8000"
	}
	return "http://localhost:5000"
}

func (o *Orchestrator) applyPatches(res *Result, plan Plan, name string, values config.EnvSettings) error {
	mods, err := plan.Def.FileModifications(patch.Params{
		ProjectName:   name,
		Language:      plan.Language,
		Env:           values,
		BackendOrigin: backendOrigin(plan.Def),
	})
	if err != nil {
		return err
	}
	for _, m := range mods {
		reports, err := m.Apply(res.ProjectPath)
		if err != nil {
			failed := ""
			if len(reports) < len(m.Patches) {
				failed = m.Patches[len(reports)].Name()
			}
			return &FilePatchError{Modification: m.Name, Patch: failed, Err: err}
		}
		for _, r := range reports {
			logger.Debug("[DEBUG] %s / %s: %s\n", m.Name, r.Patch, r.Outcome)
		}
		res.Patches = append(res.Patches, m.Name)
	}
	return nil
}

func (o *Orchestrator) manifest(cfg config.ProjectConfig, plan Plan, res *Result) *manifest.Manifest {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	steps := make([]string, len(res.Steps))
	for i, s := range res.Steps {
		steps[i] = s.Name
	}
	return &manifest.Manifest{
		Generator:      "celtrix",
		GeneratorVer:   o.Version,
		Project:        cfg.Name,
		Stack:          string(plan.Def.ID),
		Language:       string(plan.Language),
		PackageManager: string(plan.PackageManager),
		Template:       cfg.Template,
		SkipInstall:    cfg.SkipInstall,
		Tools:          res.Tools,
		Steps:          steps,
		Patches:        res.Patches,
		EnvFiles:       res.EnvFiles,
		CreatedAt:      now().UTC(),
	}
}
