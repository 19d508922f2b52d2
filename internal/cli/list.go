package cli

import (
	"github.com/spf13/cobra"
)

// newListCommand creates the "list" command.
func newListCommand(opts *Options) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list <service>",
		Short: "List resources of the given service type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			res := app.engine.ListResources(cmd.Context(), args[0], filter)
			return printResult(cmd, res)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Substring filter on resource name or id")

	return cmd
}
