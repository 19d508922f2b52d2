package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azniosman/Project-Fortress/internal/config"
	"github.com/azniosman/Project-Fortress/internal/resolver"
)

// newGraphCommand creates the "graph" command that renders the dependency
// graph of a batch file without creating anything.
func newGraphCommand(opts *Options) *cobra.Command {
	var (
		format     string
		inlineVars string
		varFile    string
	)

	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Render the dependency graph of a batch file",
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

			requests, err := config.LoadBatchFile(args[0], vars)
			if err != nil {
				return fmt.Errorf("failed to load batch configuration: %w", err)
			}

			r := resolver.New(resolver.DefaultRules(), app.logger)
			graph := r.Graph(requests)

			switch format {
			case "dot":
				cmd.Print(graph.DOT())
			case "mermaid":
				cmd.Print(graph.Mermaid())
			default:
				return fmt.Errorf("unsupported graph format '%s', expected dot or mermaid", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "dot", "Graph format: dot|mermaid")
	cmd.Flags().StringVar(&inlineVars, "vars", "", "Inline variables as k=v,k2=v2 for ${VAR} expansion")
	cmd.Flags().StringVar(&varFile, "var-file", "", "Path to a .env file with variables for ${VAR} expansion")

	return cmd
}
