package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/azniosman/Project-Fortress/internal/env"
	"github.com/azniosman/Project-Fortress/internal/resolver"
)

// batchFile is the on-disk shape of a batch creation file.
type batchFile struct {
	Resources []resolver.Request `yaml:"resources"`
}

// LoadBatchFile reads a batch file describing resources to create. ${VAR}
// references are expanded from vars before parsing, so batch files can carry
// environment-specific values.
func LoadBatchFile(path string, vars env.Vars) ([]resolver.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file %q: %w", path, err)
	}

	expanded := env.Expand(string(raw), vars)

	var batch batchFile
	if err := yaml.Unmarshal([]byte(expanded), &batch); err != nil {
		return nil, fmt.Errorf("parse batch file %q: %w", path, err)
	}
	if len(batch.Resources) == 0 {
		return nil, fmt.Errorf("batch file %q contains no resources", path)
	}

	for i, req := range batch.Resources {
		if req.Service == "" {
			return nil, fmt.Errorf("batch file %q: resource %d has no service", path, i)
		}
	}
	return batch.Resources, nil
}
