package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azniosman/Project-Fortress/internal/engine"
)

// newExportCommand creates the "export" command that renders managed
// resources as infrastructure-as-code.
func newExportCommand(opts *Options) *cobra.Command {
	var (
		format    string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export managed resources as Terraform or CloudFormation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			region := app.settings.AWS.Region
			if opts.Region != "" {
				region = opts.Region
			}

			res := app.engine.Export(cmd.Context(), engine.ExportOptions{
				Format:     format,
				OutputPath: outputDir,
				Region:     region,
			})

			// Print the summary even on partial failure so the caller can
			// see which services were written.
			if res.Output != nil {
				if err := printJSON(cmd, res.Output); err != nil {
					return err
				}
			}
			if !res.Success {
				return fmt.Errorf("%s", res.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "terraform", "Export format: terraform|cloudformation")
	cmd.Flags().StringVar(&outputDir, "output-dir", "export", "Directory to write exported files to")

	return cmd
}
