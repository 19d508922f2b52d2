package cli

import (
	"github.com/spf13/cobra"

	"github.com/azniosman/Project-Fortress/internal/engine"
)

// newCreateCommand creates the "create" command for a single resource.
func newCreateCommand(opts *Options) *cobra.Command {
	var (
		name     string
		template string
		params   []string
		dryRun   bool
		skipDeps bool
	)

	cmd := &cobra.Command{
		Use:   "create <service>",
		Short: "Create a resource of the given service type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			parsed, err := parseParams(params)
			if err != nil {
				return err
			}

			var inline map[string]any
			if len(parsed) > 0 {
				inline = map[string]any{"parameters": parsed}
			}

			res := app.engine.CreateResource(cmd.Context(), engine.CreateOptions{
				Service:             args[0],
				Name:                name,
				Template:            template,
				Config:              inline,
				DryRun:              dryRun,
				SkipDependencyCheck: skipDeps,
			})
			return printResult(cmd, res)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Resource name")
	cmd.Flags().StringVar(&template, "template", "", "Stored template to apply")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Resource parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without creating")
	cmd.Flags().BoolVar(&skipDeps, "skip-dependency-check", false, "Skip the dependency precondition check")

	return cmd
}
