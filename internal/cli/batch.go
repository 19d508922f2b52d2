package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azniosman/Project-Fortress/internal/engine"
	"github.com/azniosman/Project-Fortress/internal/env"
)

// newBatchCommand creates the "batch" command that creates resources from a
// YAML file in dependency order.
func newBatchCommand(opts *Options) *cobra.Command {
	var (
		dryRun       bool
		ignoreErrors bool
		inlineVars   string
		varFile      string
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Create resources from a batch file in dependency order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			vars, err := collectBatchVars(app.vars, inlineVars, varFile)
			if err != nil {
				return err
			}
			app.batchVars = vars

			res := app.engine.BatchCreateFile(cmd.Context(), args[0], engine.BatchOptions{
				DryRun:       dryRun,
				IgnoreErrors: ignoreErrors,
			})

			if err := printJSON(cmd, res.Rows); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("%s", res.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without creating")
	cmd.Flags().BoolVar(&ignoreErrors, "ignore-errors", false, "Continue past failing resources")
	cmd.Flags().StringVar(&inlineVars, "vars", "", "Inline variables as k=v,k2=v2 for ${VAR} expansion")
	cmd.Flags().StringVar(&varFile, "var-file", "", "Path to a .env file with variables for ${VAR} expansion")

	return cmd
}

// collectBatchVars merges settings vars, FORTRESS_* env inputs, a var file and
// inline vars, later sources winning.
func collectBatchVars(base env.Vars, inlineVars, varFile string) (env.Vars, error) {
	var fromEnv batchEnv
	if err := parseEnv(&fromEnv); err != nil {
		return nil, err
	}
	if varFile == "" {
		varFile = fromEnv.VarFile
	}
	if inlineVars == "" {
		inlineVars = fromEnv.Vars
	}

	merged := env.Merge(base)
	if varFile != "" {
		fileVars, err := env.LoadEnvFile(varFile)
		if err != nil {
			return nil, err
		}
		merged = env.Merge(merged, fileVars)
	}
	if inlineVars != "" {
		parsed, err := env.ParseInlineVars(inlineVars)
		if err != nil {
			return nil, err
		}
		merged = env.Merge(merged, parsed)
	}
	return merged, nil
}
