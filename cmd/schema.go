package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the root_documents and scan_runs tables if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			be, err := openPostgresBackend(cmd.Context(), app.Config, 1, app.Logger.Named("postgres"))
			if err != nil {
				return err
			}
			defer be.close()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return err
		},
	}
}
