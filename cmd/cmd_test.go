package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"celtrix/internal/config"
	"celtrix/internal/prereq"
	"celtrix/internal/prompt"
	"celtrix/internal/shell"
	"celtrix/internal/stack"
)

func registry(t *testing.T) *stack.Registry {
	t.Helper()
	r, err := stack.NewRegistry()
	require.NoError(t, err)
	return r
}

func TestListStacks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listStacks(&buf, registry(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(stack.All)+1)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	for i, id := range stack.All {
		assert.True(t, strings.HasPrefix(lines[i+1], string(id)+" "), lines[i+1])
	}
	assert.Contains(t, buf.String(), "javascript,typescript,python")
}

func TestAskProject(t *testing.T) {
	in := strings.NewReader("my-app\nhono\n\nbun\n")
	cfg := config.ProjectConfig{}
	require.NoError(t, askProject(prompt.NewSession(in, io.Discard), registry(t), &cfg))

	assert.Equal(t, "my-app", cfg.Name)
	assert.Equal(t, "hono", cfg.Stack)
	assert.Equal(t, config.JavaScript, cfg.Language)
	assert.Equal(t, config.Bun, cfg.PackageManager)
}

func TestAskProjectKeepsGivenName(t *testing.T) {
	// mean only offers typescript, so no language question is asked.
	in := strings.NewReader("bad name!\nmean\n\n")
	cfg := config.ProjectConfig{Name: "shop", PackageManager: config.Yarn}
	require.NoError(t, askProject(prompt.NewSession(in, io.Discard), registry(t), &cfg))

	assert.Equal(t, "shop", cfg.Name)
	assert.Equal(t, "mean", cfg.Stack)
	assert.Empty(t, cfg.Language)
	assert.Equal(t, config.Yarn, cfg.PackageManager)
}

func TestAskProjectInputClosed(t *testing.T) {
	cfg := config.ProjectConfig{}
	err := askProject(prompt.NewSession(strings.NewReader(""), io.Discard), registry(t), &cfg)
	assert.ErrorContains(t, err, "input closed")
}

func TestLoadSettingsPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stack: mern\nlanguage: typescript\npackage-manager: yarn\nenv:\n  db_name: shop\n"), 0o644))
	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })
	t.Setenv("CELTRIX_LANGUAGE", "javascript")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("stack", "", "")
	fs.String("language", "", "")
	fs.String("package-manager", "", "")
	require.NoError(t, fs.Parse([]string{"--stack", "hono"}))

	s, err := loadSettings(fs)
	require.NoError(t, err)
	assert.Equal(t, "hono", s.Stack)
	assert.Equal(t, "javascript", s.Language)
	assert.Equal(t, "yarn", s.PackageManager)
	assert.Equal(t, "shop", s.Env.DBName)
	assert.Equal(t, path, s.Source())
}

func TestLoadSettingsExplicitMissingFile(t *testing.T) {
	old := configPath
	configPath = filepath.Join(t.TempDir(), "nope.yaml")
	t.Cleanup(func() { configPath = old })

	_, err := loadSettings(pflag.NewFlagSet("test", pflag.ContinueOnError))
	assert.Error(t, err)
}

type fakeHost map[string]string

func (f fakeHost) Run(context.Context, string, shell.Options) (shell.Result, error) {
	return shell.Result{}, errors.New("unexpected Run")
}

func (f fakeHost) Output(_ context.Context, name string, args ...string) (string, error) {
	out, ok := f[strings.Join(append([]string{name}, args...), " ")]
	if !ok {
		return "", errors.New("exit status 1")
	}
	return out, nil
}

func (f fakeHost) LookPath(name string) (string, error) {
	if _, ok := f[name+" --version"]; ok {
		return "/usr/bin/" + name, nil
	}
	return "", exec.ErrNotFound
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetContext(context.Background())
	c.SetOut(&buf)
	return c, &buf
}

func TestDoctor(t *testing.T) {
	host := fakeHost{"node --version": "v20.11.0\n", "pnpm --version": "9.1.0\n"}
	c, out := testCommand()
	checker := &prereq.Checker{Runner: host, PackageManager: config.PNPM}

	require.NoError(t, doctor(c, registry(t), checker, "hono"))
	assert.Contains(t, out.String(), "node")
	assert.Contains(t, out.String(), "20.11.0")
	assert.Contains(t, out.String(), "pnpm")
}

func TestDoctorReportsMissingTool(t *testing.T) {
	host := fakeHost{"node --version": "v14.0.0\n", "npm --version": "6.14.0\n"}
	c, out := testCommand()

	err := doctor(c, registry(t), &prereq.Checker{Runner: host}, "hono")
	require.Error(t, err)
	assert.True(t, prereq.IsMissing(err))
	assert.NotContains(t, out.String(), "npm")
}

func TestDoctorUnknownStack(t *testing.T) {
	c, _ := testCommand()
	err := doctor(c, registry(t), &prereq.Checker{Runner: fakeHost{}}, "foo-stack")
	assert.ErrorContains(t, err, "unsupported stack")
}

func TestWithInterruptCancelsOnSIGINT(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("cannot send os.Interrupt on windows")
	}
	err := withInterrupt(context.Background(), func(ctx context.Context) error {
		self, err := os.FindProcess(os.Getpid())
		require.NoError(t, err)
		require.NoError(t, self.Signal(os.Interrupt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("context was not cancelled")
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
}
