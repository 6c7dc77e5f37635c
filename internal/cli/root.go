package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the schema2ts CLI.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the schema2ts CLI with ctx, which remote input fetches
// observe for cancellation.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema2ts",
		Short: "Generate TypeScript route and operation declarations from API schemas",
		Long: "schema2ts turns a schema graph document or an OpenAPI/Swagger document into a " +
			"TypeScript declaration file with model types, an $operations table and a $paths route table.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagErr := func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	}
	cmd.SetFlagErrorFunc(flagErr)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	g := newGenerateCmd()
	g.SetFlagErrorFunc(flagErr)
	cmd.AddCommand(g)

	i := newInitCmd()
	i.SetFlagErrorFunc(flagErr)
	cmd.AddCommand(i)

	return cmd
}
