package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rl1809/tshirt-checkout/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "shopctl",
		Short:         "Operate the t-shirt shop checkout engine",
		Long:          "shopctl seeds the catalog, inspects stock and runs checkouts against the configured ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "Path to the YAML configuration file")

	load := func() (config.Config, error) {
		return config.Load(configPath)
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newMigrateCmd(load))
	cmd.AddCommand(newSeedCmd(load))
	cmd.AddCommand(newStockCmd(load))
	cmd.AddCommand(newCheckoutCmd(load))
	cmd.AddCommand(newStressCmd(load))
	return cmd
}

type configLoader func() (config.Config, error)

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// ExecuteContext runs the root command with ctx. Cancelling it prevents
// further writer lock attempts; an attempt already waiting runs to the lock
// timeout.
func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
