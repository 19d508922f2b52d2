package cli

import (
	envparse "github.com/caarlos0/env/v11"

	"github.com/azniosman/Project-Fortress/internal/logging"
)

// baseEnv defines root CLI defaults sourced from FORTRESS_* env vars.
type baseEnv struct {
	// ConfigPath is the settings file path from FORTRESS_CONFIG.
	ConfigPath string `env:"FORTRESS_CONFIG"`
	// Region is the AWS region override from FORTRESS_REGION.
	Region string `env:"FORTRESS_REGION"`
	// Profile is the AWS profile override from FORTRESS_PROFILE.
	Profile string `env:"FORTRESS_PROFILE"`
	// LogLevel is the logging level from FORTRESS_LOG_LEVEL.
	LogLevel string `env:"FORTRESS_LOG_LEVEL"`
}

// batchEnv describes inline vars and var files passed via env.
type batchEnv struct {
	// Vars is a k=v,k2=v2 list from FORTRESS_VARS.
	Vars string `env:"FORTRESS_VARS"`
	// VarFile is a .env path from FORTRESS_VAR_FILE.
	VarFile string `env:"FORTRESS_VAR_FILE"`
}

// parseEnv fills target from FORTRESS_* env vars via caarlos0/env.
func parseEnv(target any) error {
	return envparse.Parse(target)
}

// applyEnvDefaults overlays FORTRESS_* environment defaults onto opts before
// flag parsing, so flags still win.
func applyEnvDefaults(opts *Options) {
	var base baseEnv
	if err := parseEnv(&base); err != nil {
		return
	}
	if base.ConfigPath != "" {
		opts.ConfigPath = base.ConfigPath
	}
	if base.Region != "" {
		opts.Region = base.Region
	}
	if base.Profile != "" {
		opts.Profile = base.Profile
	}
	if base.LogLevel != "" {
		opts.LogLevel = logging.ParseLevel(base.LogLevel)
		opts.logLevelName = base.LogLevel
		opts.logLevelEnv = true
	}
}
