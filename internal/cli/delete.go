package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/azniosman/Project-Fortress/internal/engine"
)

// newDeleteCommand creates the "delete" command.
func newDeleteCommand(opts *Options) *cobra.Command {
	var (
		dryRun bool
		force  bool
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "delete <service> <resource-id>",
		Short: "Delete a resource, refusing while other resources depend on it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.settings.UI.ConfirmPrompts && !yes && !dryRun {
				ok, err := confirm(cmd, fmt.Sprintf("Delete %s resource '%s'?", args[0], args[1]))
				if err != nil {
					return err
				}
				if !ok {
					app.logger.Info("deletion aborted", "service", args[0], "id", args[1])
					return nil
				}
			}

			res := app.engine.DeleteResource(cmd.Context(), engine.DeleteOptions{
				Service:             args[0],
				ResourceID:          args[1],
				DryRun:              dryRun,
				SkipDependencyCheck: force,
			})
			return printResult(cmd, res)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without deleting")
	cmd.Flags().BoolVar(&force, "force", false, "Delete even when dependents exist")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// confirm asks a yes/no question on the command's input stream.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
