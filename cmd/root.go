package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"celtrix/internal/config"
	"celtrix/internal/logger"
	"celtrix/internal/prereq"
	"celtrix/internal/scaffold"
	"celtrix/internal/shell"
)

// version is overridden at build time with -ldflags "-X celtrix/cmd.version=...".
var version = "dev"

var (
	// debug enables gray [DEBUG] output, toggled with --debug.
	debug bool
	// noColor disables colored output even on a terminal.
	noColor bool
	// configPath points at an explicit settings file; empty means the default location.
	configPath string
)

// rootCmd creates a project: `celtrix my-app --stack mern`.
var rootCmd = &cobra.Command{
	Use:   "celtrix [project-name]",
	Short: "Scaffold full-stack web projects",
	Long: `celtrix creates a ready-to-run full-stack project from one of its stacks
(MERN, MEVN, MEAN, Hono, T3, Django + React and variants). It checks the
required tools, runs the generators, patches the generated files and writes
the .env files. If anything fails the project directory is removed.`,
	Example: `  celtrix my-app --stack mern
  celtrix blog -s django-react -p pnpm
  celtrix shop -s mean+tailwind+auth -l typescript --skip-install`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,

	// Initialize logging before any subcommand runs.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(debug, noColor)
	},
	RunE: runCreate,
}

func init() {
	rootCmd.Version = version

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&configPath, "config", "", "Settings file (default ~/.config/celtrix/config.yaml)")

	f := rootCmd.Flags()
	// Read through viper in loadSettings, so they are not bound to variables.
	f.StringP("stack", "s", "", "Stack to create (see `celtrix stacks`)")
	f.StringP("language", "l", "", "Language variant: javascript, typescript or python")
	f.StringP("package-manager", "p", "", "Package manager: npm, yarn, pnpm or bun")
	f.StringVar(&createOpts.template, "template", "", "Boilerplate archive or directory copied over the generated project")
	f.BoolVar(&createOpts.skipInstall, "skip-install", false, "Skip dependency installation steps")

	rootCmd.AddCommand(stacksCmd, doctorCmd)
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		handleError(err)
		os.Exit(1)
	}
}

// withInterrupt runs fn with a context cancelled by the first Ctrl-C. Outside
// fn an interrupt keeps its default effect and ends the process, e.g. while
// a prompt is waiting for input.
func withInterrupt(parent context.Context, fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()
	return fn(ctx)
}

func handleError(err error) {
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	logger.Error("✖ %v\n", err)

	var exists *scaffold.DirectoryExistsError
	var cmdErr *shell.CommandExecutionError
	switch {
	case errors.Is(err, context.Canceled):
		logger.Detail("  Interrupted. Nothing was left behind.\n")
	case errors.As(err, &exists):
		logger.Detail("  Choose another name or remove the existing directory.\n")
	case prereq.IsMissing(err):
		logger.Detail("  Run `celtrix doctor --stack <stack>` after installing to re-check.\n")
	case errors.As(err, &cmdErr) && cmdErr.Dir != "":
		logger.Detail("  The command ran in %s.\n", cmdErr.Dir)
	}
}

// loadSettings merges the settings file, CELTRIX_* variables and the
// stack/language/package-manager flags of fs. Flags win over the environment,
// the environment over the file.
func loadSettings(fs *pflag.FlagSet) (config.Settings, error) {
	v := config.NewViper(configPath)
	if err := bindFlags(v, fs, "stack", "language", "package-manager"); err != nil {
		return config.Settings{}, err
	}
	s, err := config.LoadSettings(v, configPath != "")
	if err != nil {
		return config.Settings{}, err
	}
	if s.Source() != "" {
		logger.Debug("[DEBUG] settings loaded from %s\n", s.Source())
	}
	return s, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(name, f); err != nil {
			return err
		}
	}
	return nil
}
