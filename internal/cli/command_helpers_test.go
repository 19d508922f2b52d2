package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azniosman/Project-Fortress/internal/env"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{
		"instance_type=t2.micro",
		"versioning=true",
		"count=3",
	})
	require.NoError(t, err)
	assert.Equal(t, "t2.micro", params["instance_type"])
	assert.Equal(t, true, params["versioning"])
	assert.Equal(t, 3, params["count"])
}

func TestParseParamsInvalid(t *testing.T) {
	_, err := parseParams([]string{"no-separator"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")

	_, err = parseParams([]string{"=value"})
	require.Error(t, err)
}

func TestParseParamsEmpty(t *testing.T) {
	params, err := parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)
}

func TestCollectBatchVarsPrecedence(t *testing.T) {
	varFile := filepath.Join(t.TempDir(), "vars.env")
	require.NoError(t, os.WriteFile(varFile, []byte("NAME=from-file\nREGION=eu-west-1\n"), 0o644))

	vars, err := collectBatchVars(env.Vars{"NAME": "from-settings", "BASE": "kept"}, "NAME=inline", varFile)
	require.NoError(t, err)

	assert.Equal(t, "inline", vars["NAME"])
	assert.Equal(t, "eu-west-1", vars["REGION"])
	assert.Equal(t, "kept", vars["BASE"])
}
