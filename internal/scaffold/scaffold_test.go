package scaffold

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"celtrix/internal/config"
	"celtrix/internal/envfile"
	"celtrix/internal/manifest"
	"celtrix/internal/shell"
	"celtrix/internal/stack"
)

// fakeRunner records commands and imitates just enough of mkdir and
// npm init for the patches to find their targets.
type fakeRunner struct {
	tools  map[string]string // name -> --version banner
	failOn string            // command that exits non-zero
	after  func(command string)
	runs   []string
}

func (f *fakeRunner) Run(_ context.Context, command string, opts shell.Options) (shell.Result, error) {
	f.runs = append(f.runs, command)
	if f.after != nil {
		defer f.after(command)
	}
	if command == f.failOn {
		return shell.Result{Command: command, ExitCode: 1, Stderr: "boom"},
			&shell.CommandExecutionError{Command: command, Dir: opts.Dir, ExitCode: 1, Stderr: "boom", Err: errors.New("exit status 1")}
	}
	switch {
	case strings.HasPrefix(command, "mkdir "):
		for _, name := range strings.Fields(command)[1:] {
			if err := os.MkdirAll(filepath.Join(opts.Dir, filepath.FromSlash(name)), 0o755); err != nil {
				return shell.Result{}, err
			}
		}
	case command == "npm init -y" || command == "pnpm init":
		if err := os.WriteFile(filepath.Join(opts.Dir, "package.json"), []byte("{\n  \"name\": \"server\",\n  \"scripts\": {}\n}\n"), 0o644); err != nil {
			return shell.Result{}, err
		}
	}
	return shell.Result{Command: command, Success: true}, nil
}

func (f *fakeRunner) Output(_ context.Context, name string, _ ...string) (string, error) {
	if banner, ok := f.tools[name]; ok {
		return banner, nil
	}
	return "", errors.New("exit status 127")
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if _, ok := f.tools[name]; ok {
		return "/usr/bin/" + name, nil
	}
	return "", exec.ErrNotFound
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{tools: map[string]string{"node": "v20.11.0", "npm": "10.2.4"}}
}

var demo = stack.Definition{
	ID:        "demo",
	Name:      "Demo",
	Languages: []config.Language{config.JavaScript, config.TypeScript},
	Requirements: []stack.Requirement{
		{Tool: "node", Version: ">= 18"},
		{Tool: "pm"},
	},
	SetupSteps: []stack.Step{
		{Name: "Creating server", Command: "mkdir server", Cwd: "{{projectPath}}", Silent: true},
		{Name: "Initializing server", Command: "{{pmInit}}", Cwd: "{{projectPath}}/server"},
		{Name: "Installing server dependencies", Command: "{{pmInstall}} express mongoose cors dotenv", Cwd: "{{projectPath}}/server", Install: true},
		{Name: "Installing TypeScript tooling", Command: "{{pmInstall}} -D tsx", Cwd: "{{projectPath}}/server", Install: true, Languages: []config.Language{config.TypeScript}},
	},
	Patches:   []string{"package-name", "express-entry"},
	Env:       []envfile.Kind{envfile.Node},
	NextSteps: []string{"cd {{projectName}}/server && {{pm}} run dev"},
}

func newOrchestrator(t *testing.T, runner shell.Runner, defs ...stack.Definition) *Orchestrator {
	t.Helper()
	if len(defs) == 0 {
		defs = []stack.Definition{demo}
	}
	reg, err := stack.FromDefinitions(defs...)
	require.NoError(t, err)
	o := New(reg, runner, "test")
	o.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return o
}

func TestCreateSuccess(t *testing.T) {
	parent := t.TempDir()
	runner := newFakeRunner()
	o := newOrchestrator(t, runner)

	res, err := o.Create(context.Background(), config.ProjectConfig{
		Name:      "Shop",
		Stack:     "demo",
		ParentDir: parent,
		Env:       config.EnvSettings{DBName: "shopdb"},
	})
	require.NoError(t, err)

	project := filepath.Join(parent, "Shop")
	assert.Equal(t, Done, res.Phase)
	assert.Equal(t, project, res.ProjectPath)
	assert.Equal(t, config.JavaScript, res.Language)
	assert.Equal(t, []string{"mkdir server", "npm init -y", "npm install express mongoose cors dotenv"}, runner.runs)
	assert.Equal(t, []string{"cd Shop/server && npm run dev"}, res.NextSteps)
	assert.Equal(t, []string{"server/.env"}, res.EnvFiles)
	assert.Equal(t, []string{"package-name", "express-entry"}, res.Patches)

	pkg, err := os.ReadFile(filepath.Join(project, "server", "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(pkg), `"name": "shop-server"`)
	assert.Contains(t, string(pkg), `"dev": "node --watch server.js"`)
	assert.FileExists(t, filepath.Join(project, "server", "server.js"))

	env, err := os.ReadFile(filepath.Join(project, "server", ".env"))
	require.NoError(t, err)
	assert.Contains(t, string(env), "MONGODB_URI=mongodb://localhost:27017/shopdb\n")

	m, err := manifest.Load(project)
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Stack)
	assert.Equal(t, "npm", m.PackageManager)
	assert.Equal(t, map[string]string{"node": "20.11.0", "npm": "10.2.4"}, m.Tools)
	assert.Len(t, m.Steps, 3)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), m.CreatedAt)
}

func TestCreateSkipInstallAndTypeScript(t *testing.T) {
	parent := t.TempDir()
	runner := newFakeRunner()
	runner.tools["pnpm"] = "8.15.1"
	o := newOrchestrator(t, runner)

	res, err := o.Create(context.Background(), config.ProjectConfig{
		Name:           "api",
		Stack:          "demo",
		Language:       config.TypeScript,
		PackageManager: config.PNPM,
		ParentDir:      parent,
		SkipInstall:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mkdir server", "pnpm init"}, runner.runs)
	assert.Equal(t, []string{"cd api/server && pnpm install", "cd api/server && pnpm run dev"}, res.NextSteps)
	assert.FileExists(t, filepath.Join(parent, "api", "server", "server.ts"))

	// The skipped installs are still declared, so server.ts only needs `pnpm install`.
	data, err := os.ReadFile(filepath.Join(parent, "api", "server", "package.json"))
	require.NoError(t, err)
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
		Scripts         map[string]string `json:"scripts"`
	}
	require.NoError(t, json.Unmarshal(data, &pkg))
	assert.Equal(t, []string{"cors", "dotenv", "express", "mongoose"}, slices.Sorted(maps.Keys(pkg.Dependencies)))
	assert.Equal(t, map[string]string{"tsx": "latest"}, pkg.DevDependencies)
	assert.Equal(t, "tsx server.ts", pkg.Scripts["start"])
}

func TestCreateCommandFailureRemovesDirectory(t *testing.T) {
	parent := t.TempDir()
	runner := newFakeRunner()
	runner.failOn = "npm init -y"
	o := newOrchestrator(t, runner)

	res, err := o.Create(context.Background(), config.ProjectConfig{Name: "shop", Stack: "demo", ParentDir: parent})
	require.Error(t, err)

	var execErr *shell.CommandExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "npm init -y", execErr.Command)
	assert.Equal(t, "boom", execErr.Stderr)
	assert.Equal(t, Failed, res.Phase)
	assert.NoDirExists(t, filepath.Join(parent, "shop"))
	assert.Equal(t, []string{"mkdir server", "npm init -y"}, runner.runs)
}

func TestCreatePatchFailureRemovesDirectory(t *testing.T) {
	parent := t.TempDir()
	def := demo
	def.ID = "broken"
	// A directory where server.js should be written makes the write fail.
	def.SetupSteps = append([]stack.Step{
		{Name: "Creating server", Command: "mkdir server server/server.js", Cwd: "{{projectPath}}"},
	}, demo.SetupSteps[2:]...)
	o := newOrchestrator(t, newFakeRunner(), def)

	_, err := o.Create(context.Background(), config.ProjectConfig{Name: "shop", Stack: "broken", ParentDir: parent})
	require.Error(t, err)

	var patchErr *FilePatchError
	require.ErrorAs(t, err, &patchErr)
	assert.Equal(t, "express-entry", patchErr.Modification)
	assert.Equal(t, "server.js", patchErr.Patch)
	assert.NoDirExists(t, filepath.Join(parent, "shop"))
}

func TestCreateExistingDirectory(t *testing.T) {
	parent := t.TempDir()
	project := filepath.Join(parent, "shop")
	require.NoError(t, os.Mkdir(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "keep.txt"), []byte("mine"), 0o644))

	runner := newFakeRunner()
	o := newOrchestrator(t, runner)
	res, err := o.Create(context.Background(), config.ProjectConfig{Name: "shop", Stack: "demo", ParentDir: parent})

	var existsErr *DirectoryExistsError
	require.ErrorAs(t, err, &existsErr)
	assert.Equal(t, project, existsErr.Path)
	assert.Equal(t, Failed, res.Phase)
	assert.Empty(t, runner.runs)

	entries, err := os.ReadDir(project)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(project, "keep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestCreateUnknownStack(t *testing.T) {
	reg, err := stack.NewRegistry()
	require.NoError(t, err)
	runner := newFakeRunner()
	parent := t.TempDir()

	_, err = New(reg, runner, "test").Create(context.Background(), config.ProjectConfig{Name: "shop", Stack: "foo-stack", ParentDir: parent})

	var unsupported *UnsupportedStackError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "foo-stack", unsupported.Stack)
	assert.Contains(t, unsupported.Supported, "django-react")
	assert.NoDirExists(t, filepath.Join(parent, "shop"))
	assert.Empty(t, runner.runs)
}

func TestCreateUnsupportedLanguage(t *testing.T) {
	reg, err := stack.NewRegistry()
	require.NoError(t, err)
	parent := t.TempDir()

	_, err = New(reg, newFakeRunner(), "test").Create(context.Background(), config.ProjectConfig{
		Name: "shop", Stack: "mean", Language: config.JavaScript, ParentDir: parent,
	})

	var unsupported *UnsupportedStackError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, config.JavaScript, unsupported.Language)
	assert.Equal(t, []string{"typescript"}, unsupported.Supported)
	assert.NoDirExists(t, filepath.Join(parent, "shop"))
}

func TestCreateInvalidName(t *testing.T) {
	parent := t.TempDir()
	o := newOrchestrator(t, newFakeRunner())
	for _, name := range []string{"my app!", "", "../escape", "a/b"} {
		_, err := o.Create(context.Background(), config.ProjectConfig{Name: name, Stack: "demo", ParentDir: parent})
		var invalid *InvalidProjectNameError
		assert.ErrorAs(t, err, &invalid, name)
	}
	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateMissingPrerequisite(t *testing.T) {
	parent := t.TempDir()
	runner := newFakeRunner()
	runner.tools["node"] = "v14.21.3"
	o := newOrchestrator(t, runner)

	_, err := o.Create(context.Background(), config.ProjectConfig{Name: "shop", Stack: "demo", ParentDir: parent})

	var missing *PrerequisiteMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "node", missing.Tool)
	assert.Equal(t, "14.21.3", missing.Found)
	assert.NoDirExists(t, filepath.Join(parent, "shop"))
	assert.Empty(t, runner.runs)
}

func TestCreateUnsupportedPackageManager(t *testing.T) {
	parent := t.TempDir()
	o := newOrchestrator(t, newFakeRunner())
	_, err := o.Create(context.Background(), config.ProjectConfig{Name: "shop", Stack: "demo", PackageManager: "pip", ParentDir: parent})
	assert.ErrorContains(t, err, "unsupported package manager")
	assert.NoDirExists(t, filepath.Join(parent, "shop"))
}

func TestCreateWithTemplateDirectory(t *testing.T) {
	parent := t.TempDir()
	tmpl := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpl, "server"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "server", "server.js"), []byte("// from template\n"), 0o644))

	o := newOrchestrator(t, newFakeRunner())
	_, err := o.Create(context.Background(), config.ProjectConfig{Name: "shop", Stack: "demo", ParentDir: parent, Template: tmpl})
	require.NoError(t, err)

	// express-entry leaves an existing entry file alone.
	data, err := os.ReadFile(filepath.Join(parent, "shop", "server", "server.js"))
	require.NoError(t, err)
	assert.Equal(t, "// from template\n", string(data))
}

func TestCreateInterruptedDuringStep(t *testing.T) {
	parent := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := newFakeRunner()
	runner.after = func(command string) {
		if command == "npm init -y" {
			cancel()
		}
	}
	o := newOrchestrator(t, runner)

	res, err := o.Create(ctx, config.ProjectConfig{Name: "shop", Stack: "demo", ParentDir: parent})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Failed, res.Phase)
	assert.Equal(t, []string{"mkdir server", "npm init -y"}, runner.runs)
	assert.NoDirExists(t, filepath.Join(parent, "shop"))
}

func TestCreateInterruptedAfterLastStep(t *testing.T) {
	parent := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := newFakeRunner()
	runner.after = func(command string) {
		if strings.HasPrefix(command, "npm install") {
			cancel()
		}
	}
	o := newOrchestrator(t, runner)

	_, err := o.Create(ctx, config.ProjectConfig{Name: "shop", Stack: "demo", ParentDir: parent})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, runner.runs, 3)
	assert.NoDirExists(t, filepath.Join(parent, "shop"))
}

func TestCreateCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := newFakeRunner()
	o := newOrchestrator(t, runner)

	_, err := o.Create(ctx, config.ProjectConfig{Name: "shop", Stack: "demo", ParentDir: t.TempDir()})
	require.ErrorIs(t, err, context.Canceled)
	var missing *PrerequisiteMissingError
	assert.False(t, errors.As(err, &missing))
	assert.Empty(t, runner.runs)
}

func TestCreateRequiresParentDirectory(t *testing.T) {
	base := t.TempDir()
	parent := filepath.Join(base, "missing", "deeper")
	runner := newFakeRunner()
	o := newOrchestrator(t, runner)

	_, err := o.Create(context.Background(), config.ProjectConfig{Name: "shop", Stack: "demo", ParentDir: parent})
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.NoDirExists(t, filepath.Join(base, "missing"))
	assert.Empty(t, runner.runs)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "commands-running", CommandsRunning.String())
	assert.Equal(t, "unknown", Phase(42).String())
	assert.True(t, Done.Terminal())
	assert.False(t, FilesPatched.Terminal())
}
