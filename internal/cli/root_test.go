package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azniosman/Project-Fortress/internal/config"
	"github.com/azniosman/Project-Fortress/internal/env"
	"github.com/azniosman/Project-Fortress/internal/logging"
)

// runProbe executes a no-op subcommand under the root command and returns the
// logger the command saw in its context.
func runProbe(t *testing.T, opts *Options, args ...string) *slog.Logger {
	t.Helper()

	var captured *slog.Logger
	root := newRootCommand(opts, nil)
	root.AddCommand(&cobra.Command{
		Use: "noop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			captured = LoggerFromContext(cmd.Context())
			return nil
		},
	})
	root.SetArgs(append([]string{"noop"}, args...))
	require.NoError(t, root.Execute())
	require.NotNil(t, captured)
	return captured
}

func TestLogLevelEnvFallback(t *testing.T) {
	t.Setenv("FORTRESS_LOG_LEVEL", "debug")

	opts := &Options{ConfigPath: defaultConfigPath, logLevelName: "info"}
	applyEnvDefaults(opts)

	logger := runProbe(t, opts)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestLogLevelFlagBeatsEnv(t *testing.T) {
	t.Setenv("FORTRESS_LOG_LEVEL", "debug")

	opts := &Options{ConfigPath: defaultConfigPath, logLevelName: "info"}
	applyEnvDefaults(opts)

	logger := runProbe(t, opts, "--log-level", "error")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestSettingsLoggerAppliesConfiguredLevel(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "info", "")

	settings := config.Settings{}
	settings.General.LogLevel = "debug"

	base := logging.NewLogger(os.Stderr, logging.LevelInfo)
	logger := settingsLogger(cmd, &Options{}, settings, base)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestSettingsLoggerDefersToFlagAndEnv(t *testing.T) {
	settings := config.Settings{}
	settings.General.LogLevel = "debug"
	base := logging.NewLogger(os.Stderr, logging.LevelInfo)

	// Explicit flag wins over settings.
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "info", "")
	require.NoError(t, cmd.Flags().Set("log-level", "info"))
	assert.Same(t, base, settingsLogger(cmd, &Options{}, settings, base))

	// FORTRESS_LOG_LEVEL wins over settings.
	cmd = &cobra.Command{}
	cmd.Flags().String("log-level", "info", "")
	assert.Same(t, base, settingsLogger(cmd, &Options{logLevelEnv: true}, settings, base))
}

func TestBatchLoaderReadsOverlaidVars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resources:\n  - service: s3\n    name: ${BUCKET}\n"), 0o644))

	a := &app{vars: env.Vars{"BUCKET": "from-settings"}}
	a.batchVars = a.vars
	loader := batchLoader(a)

	a.batchVars = env.Merge(a.vars, env.Vars{"BUCKET": "from-flags"})

	requests, err := loader(path)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "from-flags", requests[0].Name)
}
