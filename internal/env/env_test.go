package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLaterWins(t *testing.T) {
	merged := Merge(
		Vars{"A": "1", "B": "1"},
		Vars{"B": "2", "C": "2"},
	)
	assert.Equal(t, Vars{"A": "1", "B": "2", "C": "2"}, merged)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.env"), []byte("KEY=first\nONLY_A=yes\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.env"), []byte("KEY=second\n"), 0o644))

	vars, err := LoadEnvFiles(dir, []string{"a.env", "b.env"})
	require.NoError(t, err)
	assert.Equal(t, "second", vars["KEY"])
	assert.Equal(t, "yes", vars["ONLY_A"])
}

func TestLoadEnvFilesMissing(t *testing.T) {
	_, err := LoadEnvFiles(t.TempDir(), []string{"absent.env"})
	assert.Error(t, err)
}

func TestParseInlineVars(t *testing.T) {
	vars, err := ParseInlineVars("A=1, B=two ,C=")
	require.NoError(t, err)
	assert.Equal(t, Vars{"A": "1", "B": "two", "C": ""}, vars)

	_, err = ParseInlineVars("missing-separator")
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	vars := Vars{"SUBNET": "subnet-1"}
	assert.Equal(t, "id: subnet-1", Expand("id: ${SUBNET}", vars))
	assert.Equal(t, "id: ${UNKNOWN}", Expand("id: ${UNKNOWN}", vars))
}
