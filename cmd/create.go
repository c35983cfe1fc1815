package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"celtrix/internal/config"
	"celtrix/internal/logger"
	"celtrix/internal/prompt"
	"celtrix/internal/scaffold"
	"celtrix/internal/shell"
	"celtrix/internal/stack"
)

// createOptions holds the root command flags that are not layered through settings.
type createOptions struct {
	template    string
	skipInstall bool
}

var createOpts createOptions

func runCreate(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd.Flags())
	if err != nil {
		return err
	}
	registry, err := stack.NewRegistry()
	if err != nil {
		return err
	}

	cfg := config.ProjectConfig{
		Stack:          settings.Stack,
		Language:       config.Language(settings.Language),
		PackageManager: config.PackageManager(settings.PackageManager),
		Template:       createOpts.template,
		SkipInstall:    createOpts.skipInstall,
		Env:            settings.Env,
	}
	if len(args) == 1 {
		cfg.Name = args[0]
	}

	if cfg.Name == "" || cfg.Stack == "" {
		if !prompt.StdinIsTerminal() {
			return fmt.Errorf("project name and --stack are required when stdin is not a terminal (usage: %s)", cmd.UseLine())
		}
		if err := askProject(prompt.NewSession(os.Stdin, os.Stdout), registry, &cfg); err != nil {
			return err
		}
	}

	logger.Info("Creating %s with the %s stack...\n", cfg.Name, cfg.Stack)
	orch := scaffold.New(registry, shell.NewLocal(), version)
	var res *scaffold.Result
	err = withInterrupt(cmd.Context(), func(ctx context.Context) error {
		var err error
		res, err = orch.Create(ctx, cfg)
		return err
	})
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), res)
	return nil
}

// askProject fills the fields of cfg the user did not give on the command
// line. Values already set act as defaults.
func askProject(s *prompt.Session, registry *stack.Registry, cfg *config.ProjectConfig) error {
	if cfg.Name == "" {
		name, err := s.Ask(prompt.Interactive{
			Prompt:   "Project name",
			Required: true,
			Validate: config.ValidateName,
		})
		if err != nil {
			return err
		}
		cfg.Name = name
	}

	ids := registry.IDs()
	options := make([]string, len(ids))
	for i, id := range ids {
		options[i] = string(id)
	}
	def := cfg.Stack
	if def == "" {
		def = options[0]
	}
	chosen, err := s.Ask(prompt.Interactive{Prompt: "Stack", Default: def, Options: options, Required: true})
	if err != nil {
		return err
	}
	cfg.Stack = chosen

	d, _ := registry.Lookup(stack.ID(cfg.Stack))
	if len(d.Languages) > 1 {
		langs := make([]string, len(d.Languages))
		for i, l := range d.Languages {
			langs[i] = string(l)
		}
		lang := string(cfg.Language)
		if !d.Supports(cfg.Language) {
			lang = string(d.DefaultLanguage())
		}
		answer, err := s.Ask(prompt.Interactive{Prompt: "Language", Default: lang, Options: langs, Required: true})
		if err != nil {
			return err
		}
		cfg.Language = config.Language(answer)
	}

	pms := make([]string, len(config.PackageManagers))
	for i, pm := range config.PackageManagers {
		pms[i] = string(pm)
	}
	pm := string(cfg.PackageManager)
	if !cfg.PackageManager.Valid() {
		pm = string(config.NPM)
	}
	answer, err := s.Ask(prompt.Interactive{Prompt: "Package manager", Default: pm, Options: pms, Required: true})
	if err != nil {
		return err
	}
	cfg.PackageManager = config.PackageManager(answer)
	return nil
}

func printSummary(w io.Writer, res *scaffold.Result) {
	logger.Success("\n✔ Project created at %s\n", res.ProjectPath)
	for _, f := range res.EnvFiles {
		logger.Detail("  wrote %s\n", filepath.FromSlash(f))
	}
	if len(res.NextSteps) == 0 {
		return
	}
	fmt.Fprintln(w)
	logger.Info("Next steps:\n")
	for _, step := range res.NextSteps {
		logger.Detail("  %s\n", step)
	}
}

// errNoStack is returned by commands that need --stack when none was given.
var errNoStack = errors.New("--stack is required (see `celtrix stacks`)")
