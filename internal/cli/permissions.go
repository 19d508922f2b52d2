package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newPermissionsCommand creates the "permissions" command that validates AWS
// credentials and asks every handler whether its operations are allowed.
func newPermissionsCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Check AWS credentials and per-service permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.checker != nil {
				identity, err := app.checker.CallerIdentity(cmd.Context())
				if err != nil {
					return err
				}
				app.logger.Info("caller identity resolved",
					"account", identity.Account,
					"arn", identity.ARN,
				)
			}

			issues := app.engine.CheckPermissions(cmd.Context())
			if len(issues) > 0 {
				for _, issue := range issues {
					app.logger.Warn("permission issue", "detail", issue)
				}
				return fmt.Errorf("permission checks failed: %s", strings.Join(issues, ", "))
			}

			app.logger.Info("all permission checks passed", "services", app.registry.Names())
			return nil
		},
	}

	return cmd
}
