// Package config contains the loader and strongly typed model for fortress
// settings, resource templates and batch files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/azniosman/Project-Fortress/internal/env"
)

// Settings is the top-level fortress configuration stored in settings.yaml.
type Settings struct {
	// General holds application-wide settings.
	General GeneralSettings `yaml:"general"`
	// AWS holds AWS client settings.
	AWS AWSSettings `yaml:"aws"`
	// Templates holds template storage settings.
	Templates TemplateSettings `yaml:"templates"`
	// UI holds presentation preferences.
	UI UISettings `yaml:"ui"`
}

// GeneralSettings holds application-wide settings.
type GeneralSettings struct {
	// LogLevel is the default log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// StateFile is the path to the resource inventory database.
	StateFile string `yaml:"state_file"`
	// EnvFiles lists .env files merged into the process environment on load.
	EnvFiles []string `yaml:"env_files,omitempty"`
}

// AWSSettings holds AWS client settings.
type AWSSettings struct {
	// Region is the default AWS region.
	Region string `yaml:"region"`
	// Profile selects the shared-config profile.
	Profile string `yaml:"profile"`
}

// TemplateSettings holds template storage settings.
type TemplateSettings struct {
	// Directory is the root directory containing per-service template files.
	Directory string `yaml:"directory"`
}

// UISettings holds presentation preferences.
type UISettings struct {
	// ConfirmPrompts toggles interactive confirmation before destructive operations.
	ConfirmPrompts bool `yaml:"confirm_prompts"`
}

// DefaultSettings returns the settings written when no settings.yaml exists.
// Paths are anchored under baseDir.
func DefaultSettings(baseDir string) Settings {
	return Settings{
		General: GeneralSettings{
			LogLevel:  "info",
			StateFile: filepath.Join(baseDir, "state.db"),
		},
		AWS: AWSSettings{
			Region:  "us-east-1",
			Profile: "default",
		},
		Templates: TemplateSettings{
			Directory: filepath.Join(baseDir, "templates"),
		},
		UI: UISettings{
			ConfirmPrompts: true,
		},
	}
}

// LoadSettings reads settings from path. When the file does not exist, default
// settings are written there and returned. EnvFiles listed in the settings are
// loaded into the returned Vars for downstream variable expansion.
func LoadSettings(path string) (Settings, env.Vars, error) {
	if path == "" {
		return Settings{}, nil, fmt.Errorf("settings path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Settings{}, nil, fmt.Errorf("resolve settings path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	raw, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		settings := DefaultSettings(baseDir)
		if err := SaveSettings(absPath, settings); err != nil {
			return Settings{}, nil, err
		}
		return settings, env.FromOS(), nil
	}
	if err != nil {
		return Settings{}, nil, fmt.Errorf("read settings %q: %w", absPath, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return Settings{}, nil, fmt.Errorf("parse settings %q: %w", absPath, err)
	}

	fileVars, err := env.LoadEnvFiles(baseDir, settings.General.EnvFiles)
	if err != nil {
		return Settings{}, nil, err
	}
	vars := env.Merge(env.FromOS(), fileVars)

	return settings, vars, nil
}

// SaveSettings writes settings to path, creating parent directories as needed.
func SaveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %q: %w", path, err)
	}
	return nil
}
