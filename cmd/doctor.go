package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"celtrix/internal/config"
	"celtrix/internal/logger"
	"celtrix/internal/prereq"
	"celtrix/internal/shell"
	"celtrix/internal/stack"
)

// doctorCmd runs only the prerequisite checks of a stack, writing nothing.
var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Check that the tools a stack needs are installed",
	Example: "  celtrix doctor --stack django-react",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		if settings.Stack == "" {
			return errNoStack
		}
		registry, err := stack.NewRegistry()
		if err != nil {
			return err
		}
		checker := &prereq.Checker{
			Runner:         shell.NewLocal(),
			PackageManager: config.PackageManager(settings.PackageManager),
		}
		return doctor(cmd, registry, checker, settings.Stack)
	},
}

func init() {
	doctorCmd.Flags().StringP("stack", "s", "", "Stack whose prerequisites are checked")
	doctorCmd.Flags().StringP("package-manager", "p", "", "Package manager to check for")
}

func doctor(cmd *cobra.Command, registry *stack.Registry, checker *prereq.Checker, id string) error {
	def, ok := registry.Lookup(stack.ID(id))
	if !ok {
		return fmt.Errorf("unsupported stack %q (see `celtrix stacks`)", id)
	}
	if checker.PackageManager != "" && !checker.PackageManager.Valid() {
		return fmt.Errorf("unsupported package manager %q", checker.PackageManager)
	}

	logger.Info("Checking prerequisites for %s...\n", def.Name)
	var report prereq.Report
	err := withInterrupt(cmd.Context(), func(ctx context.Context) error {
		var err error
		report, err = checker.Check(ctx, def.Requirements)
		return err
	})
	printVersions(cmd.OutOrStdout(), report)
	if err != nil {
		return err
	}
	logger.Success("✔ All prerequisites for %s are installed\n", def.ID)
	return nil
}

func printVersions(w io.Writer, report prereq.Report) {
	tools := make([]string, 0, len(report.Versions))
	for tool := range report.Versions {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		fmt.Fprintf(w, "  %-8s %s\n", tool, report.Versions[tool])
	}
}
