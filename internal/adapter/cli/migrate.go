package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rl1809/tshirt-checkout/internal/config"
)

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, load, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if a.cfg.Database.Driver == config.DriverMemory {
					fmt.Fprintln(out, "memory ledger has no schema, nothing to migrate")
					return nil
				}
				fmt.Fprintf(out, "applied %d migration(s) on %s\n", a.migrated, a.cfg.Database.Driver)
				return nil
			})
		},
	}
}
