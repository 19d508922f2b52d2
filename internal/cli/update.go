package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azniosman/Project-Fortress/internal/engine"
)

// newUpdateCommand creates the "update" command.
func newUpdateCommand(opts *Options) *cobra.Command {
	var (
		params []string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "update <service> <resource-id>",
		Short: "Update attributes of an existing resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseParams(params)
			if err != nil {
				return err
			}
			if len(parsed) == 0 {
				return fmt.Errorf("update requires at least one --param key=value")
			}

			app, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			res := app.engine.UpdateResource(cmd.Context(), engine.UpdateOptions{
				Service:    args[0],
				ResourceID: args[1],
				Parameters: parsed,
				DryRun:     dryRun,
			})
			return printResult(cmd, res)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "Attribute to update as key=value (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without updating")

	return cmd
}
