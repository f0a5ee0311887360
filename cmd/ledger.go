package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newLedgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger <run-id>",
		Short: "Show the recorded totals for a previous scan run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			be, err := openPostgresReader(cmd.Context(), app.Config, app.Logger.Named("postgres"))
			if err != nil {
				return err
			}
			defer be.close()

			run, err := be.runs.GetRun(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("load run %s: %w", id, err)
			}
			renderRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
}
