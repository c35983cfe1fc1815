package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"celtrix/internal/logger"
)

// FileName is the manifest written at the root of every generated project.
const FileName = ".celtrix.json"

// Manifest records how a project was generated.
type Manifest struct {
	Generator      string            `json:"generator"`
	GeneratorVer   string            `json:"generator_version"`
	Project        string            `json:"project"`
	Stack          string            `json:"stack"`
	Language       string            `json:"language"`
	PackageManager string            `json:"package_manager"`
	Template       string            `json:"template,omitempty"`
	SkipInstall    bool              `json:"skip_install,omitempty"`
	Tools          map[string]string `json:"tools"`
	Steps          []string          `json:"steps"`
	Patches        []string          `json:"patches"`
	EnvFiles       []string          `json:"env_files"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Path returns the manifest location inside projectPath.
func Path(projectPath string) string {
	return filepath.Join(projectPath, FileName)
}

// Load reads the manifest of projectPath.
func Load(projectPath string) (*Manifest, error) {
	data, err := os.ReadFile(Path(projectPath))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", Path(projectPath), err)
	}
	if m.Tools == nil {
		m.Tools = map[string]string{}
	}
	return &m, nil
}

// Save writes m into projectPath as indented JSON.
func Save(projectPath string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := Path(projectPath)
	logger.Debug("[DEBUG] Writing manifest to %s:\n%s\n", path, string(data))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}
