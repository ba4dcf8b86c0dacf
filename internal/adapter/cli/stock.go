package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

func newStockCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "stock [item...]",
		Short: "Show stock and price of catalog items",
		Long:  "Show ledger stock, unit price and the cached stock mirror. Without arguments every demo item is listed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			refs := make([]domain.ItemRef, 0, len(args))
			for _, arg := range args {
				refs = append(refs, domain.ItemRef(arg))
			}
			if len(refs) == 0 {
				for _, item := range demoItems {
					refs = append(refs, item.Ref)
				}
			}

			return withApp(cmd, load, func(ctx context.Context, a *app) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ITEM\tSTOCK\tPRICE\tMIRROR")
				for _, ref := range refs {
					stock, err := a.store.CurrentStock(ctx, ref)
					if err != nil {
						return err
					}
					price, err := a.store.CurrentPrice(ctx, ref)
					if err != nil {
						return err
					}
					mirror := "-"
					if cached, ok, err := a.cache.GetStock(ctx, ref); err != nil {
						return fmt.Errorf("read stock mirror: %w", err)
					} else if ok {
						mirror = strconv.Itoa(cached)
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", ref, stock, price.StringFixed(2), mirror)
				}
				return w.Flush()
			})
		},
	}
}
