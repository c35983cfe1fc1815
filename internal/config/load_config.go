package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read into Settings,
// e.g. CELTRIX_PACKAGE_MANAGER or CELTRIX_ENV_DB_NAME.
const EnvPrefix = "CELTRIX"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName checks that name is safe to use as a directory and package name:
// letters, digits, hyphen and underscore only.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("project name is required")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid project name %q: use only letters, numbers, hyphens and underscores", name)
	}
	return nil
}

// DefaultSettingsDir is where the settings file is looked up when --config is not given.
func DefaultSettingsDir() string {
	dir, err := homedir.Expand("~/.config/celtrix")
	if err != nil {
		return ""
	}
	return dir
}

// NewViper prepares a viper instance reading explicitPath, or config.yaml
// from the default settings directory, plus CELTRIX_* environment variables.
func NewViper(explicitPath string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// Defaults register every key so AutomaticEnv applies on Unmarshal.
	v.SetDefault("stack", "")
	v.SetDefault("language", "")
	v.SetDefault("package-manager", string(NPM))
	for _, key := range []string{"secret_key", "db_name", "db_user", "db_password", "db_host", "db_port", "app_name", "api_url"} {
		v.SetDefault("env."+key, "")
	}

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return v
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := DefaultSettingsDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	return v
}

// LoadSettings reads the settings file (missing is fine unless it was named
// explicitly) and decodes the merged view of file, environment and any bound flags.
func LoadSettings(v *viper.Viper, strict bool) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || strict {
			return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
		}
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		s.source = filepath.Clean(used)
	}
	return s, nil
}

// Source returns the settings file that was read, if any.
func (s Settings) Source() string { return s.source }
