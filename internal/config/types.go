package config

import "path/filepath"

// Language is the source language of the generated frontend (and server, where a stack supports both).
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	// Python keeps a JavaScript frontend and adds Python dev tooling.
	Python Language = "python"
)

// PackageManager is the JavaScript package manager used by generated projects.
type PackageManager string

const (
	NPM  PackageManager = "npm"
	Yarn PackageManager = "yarn"
	PNPM PackageManager = "pnpm"
	Bun  PackageManager = "bun"
)

// PackageManagers lists the supported package managers, default first.
var PackageManagers = []PackageManager{NPM, Yarn, PNPM, Bun}

// Valid reports whether pm is a supported package manager.
func (pm PackageManager) Valid() bool {
	for _, known := range PackageManagers {
		if pm == known {
			return true
		}
	}
	return false
}

// ProjectConfig is the user's input for one scaffolding run. It is not
// modified once the run starts.
type ProjectConfig struct {
	Name           string         // Directory and project name
	Stack          string         // Stack identifier, e.g. "django-react"
	Language       Language       // Frontend language variant
	PackageManager PackageManager // npm, yarn, pnpm or bun
	ParentDir      string         // Directory the project is created in; empty means cwd
	SkipInstall    bool           // Skip dependency installation steps
	Template       string         // Optional boilerplate archive or directory to overlay
	Env            EnvSettings    // Values interpolated into generated .env files
}

// Path returns the absolute-or-relative target directory of the project.
func (c ProjectConfig) Path() string {
	return filepath.Join(c.ParentDir, c.Name)
}

// EnvSettings holds user-supplied values for generated .env files and
// settings patches. Empty fields fall back to placeholder defaults.
type EnvSettings struct {
	SecretKey  string `mapstructure:"secret_key" yaml:"secret_key"`
	DBName     string `mapstructure:"db_name" yaml:"db_name"`
	DBUser     string `mapstructure:"db_user" yaml:"db_user"`
	DBPassword string `mapstructure:"db_password" yaml:"db_password"`
	DBHost     string `mapstructure:"db_host" yaml:"db_host"`
	DBPort     string `mapstructure:"db_port" yaml:"db_port"`
	AppName    string `mapstructure:"app_name" yaml:"app_name"`
	APIURL     string `mapstructure:"api_url" yaml:"api_url"`
}

// Settings are the persistent user defaults read from the settings file and
// CELTRIX_* environment variables.
type Settings struct {
	Stack          string      `mapstructure:"stack"`
	Language       string      `mapstructure:"language"`
	PackageManager string      `mapstructure:"package-manager"`
	Env            EnvSettings `mapstructure:"env"`

	source string
}
