package cli

import (
	"github.com/spf13/cobra"
)

// newTemplateCommand creates the "template" group command.
func newTemplateCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage stored resource templates",
	}

	cmd.AddCommand(
		newTemplateListCommand(opts),
		newTemplateCreateCommand(opts),
	)

	return cmd
}

// newTemplateListCommand creates "template list" showing available templates,
// optionally limited to one service.
func newTemplateListCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [service]",
		Short: "List available templates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			svc := ""
			if len(args) == 1 {
				svc = args[0]
			}

			available, err := app.templates.Available(svc)
			if err != nil {
				return err
			}
			if len(available) == 0 {
				app.logger.Info("no templates found", "directory", app.settings.Templates.Directory)
				return nil
			}
			return printYAML(cmd, available)
		},
	}

	return cmd
}

// newTemplateCreateCommand creates "template create" that captures existing
// resources into a reusable template.
func newTemplateCreateCommand(opts *Options) *cobra.Command {
	var (
		description string
		from        []string
		outputDir   string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a template from existing resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			res := app.engine.CreateTemplate(cmd.Context(), args[0], description, from, outputDir)
			return printResult(cmd, res)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Template description")
	cmd.Flags().StringArrayVar(&from, "from", nil, "Source resource as service:id (repeatable, required)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to write the template to (defaults to the template store)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}
