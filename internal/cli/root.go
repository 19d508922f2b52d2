// Package cli defines the command-line interface for fortress.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/azniosman/Project-Fortress/internal/logging"
)

const (
	// defaultConfigPath is the default path to the fortress settings file.
	defaultConfigPath = "fortress.yaml"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	Region     string
	Profile    string
	LogLevel   logging.Level

	// logLevelName seeds the --log-level flag default so FORTRESS_LOG_LEVEL
	// survives flag parsing; logLevelEnv records that the env set it.
	logLevelName string
	logLevelEnv  bool
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		ConfigPath:   defaultConfigPath,
		LogLevel:     logging.LevelInfo,
		logLevelName: "info",
	}
	applyEnvDefaults(rootOpts)

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fortress",
		Short: "fortress manages AWS resources with dependency-aware orchestration",
		Long: "fortress creates, lists, updates, deletes and exports AWS resources through " +
			"pluggable service handlers, ordering batch operations by their static dependency rules.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			logger = logging.NewLogger(os.Stderr, level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "Path to fortress settings file")
	cmd.PersistentFlags().StringVar(&opts.Region, "region", opts.Region, "AWS region override")
	cmd.PersistentFlags().StringVar(&opts.Profile, "profile", opts.Profile, "AWS shared-config profile override")
	cmd.PersistentFlags().String("log-level", opts.logLevelName, "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newCreateCommand(opts),
		newListCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newBatchCommand(opts),
		newExportCommand(opts),
		newTemplateCommand(opts),
		newPermissionsCommand(opts),
		newGraphCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
