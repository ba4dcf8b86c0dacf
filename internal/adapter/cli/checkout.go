package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

func newCheckoutCmd(load configLoader) *cobra.Command {
	var (
		customer string
		items    []string
		coupon   string
		spin     bool
		shipping domain.ShippingInfo
	)

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Run one checkout from cart to receipt",
		Example: `  shopctl checkout --item TEE-M:3 --coupon SAVE10 \
    --address "1 Main St" --card 4242424242424242 --expiry 12/29 --cvv 123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := parseCart(items)
			if err != nil {
				return err
			}

			return withApp(cmd, load, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()

				h, err := a.checkout.Begin(ctx, customer, cart)
				if err != nil {
					return err
				}

				if coupon != "" {
					res, err := a.checkout.ApplyCoupon(ctx, h, coupon)
					if err != nil {
						return err
					}
					if res.Source == domain.DiscountSourceCoupon {
						fmt.Fprintf(out, "coupon %s applied (%s)\n", res.Code, percent(res))
					} else {
						fmt.Fprintf(out, "coupon %s not applied\n", strings.ToUpper(coupon))
					}
				}
				if spin {
					res, err := a.checkout.SpinDiscount(h)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "spin landed on %s (%s)\n", res.Code, percent(res))
				}

				receipt, err := a.checkout.Commit(ctx, h, shipping)
				if err != nil {
					fmt.Fprintf(out, "checkout %s: %s\n", h.Stage(), err)
					return err
				}
				return printReceipt(out, receipt)
			})
		},
	}

	cmd.Flags().StringVar(&customer, "customer", "guest", "Customer reference")
	cmd.Flags().StringArrayVar(&items, "item", nil, "Cart line as ITEM[:QTY], repeatable")
	cmd.Flags().StringVar(&coupon, "coupon", "", "Coupon code to apply")
	cmd.Flags().BoolVar(&spin, "spin", false, "Spin for a discount (replaces any coupon)")
	cmd.Flags().StringVar(&shipping.Address, "address", "", "Shipping address")
	cmd.Flags().StringVar(&shipping.CardNumber, "card", "", "16 digit card number")
	cmd.Flags().StringVar(&shipping.Expiry, "expiry", "", "Card expiry MM/YY")
	cmd.Flags().StringVar(&shipping.CVV, "cvv", "", "3 digit card security code")

	return cmd
}

// parseCart reads ITEM[:QTY] flags; the quantity defaults to 1.
func parseCart(specs []string) ([]domain.CartLine, error) {
	lines := make([]domain.CartLine, 0, len(specs))
	for _, spec := range specs {
		ref, qty, found := strings.Cut(spec, ":")
		if ref == "" {
			return nil, fmt.Errorf("cart line %q: missing item", spec)
		}
		quantity := 1
		if found {
			n, err := strconv.Atoi(qty)
			if err != nil {
				return nil, fmt.Errorf("cart line %q: quantity %q is not a number", spec, qty)
			}
			quantity = n
		}
		lines = append(lines, domain.CartLine{Item: domain.ItemRef(ref), Quantity: quantity})
	}
	return lines, nil
}

func percent(d domain.DiscountResult) string {
	return d.Rate.Shift(2).String() + "%"
}

func printReceipt(out io.Writer, r domain.Receipt) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "order\t%s\n", r.OrderID)
	fmt.Fprintf(w, "tracking\t%s\n", r.TrackingID)
	fmt.Fprintf(w, "subtotal\t%s\n", r.Subtotal.StringFixed(2))
	fmt.Fprintf(w, "discount\t%s (%s)\n", r.DiscountCode, r.DiscountRate.Shift(2).String()+"%")
	fmt.Fprintf(w, "total\t%s\n", r.FinalTotal.StringFixed(2))
	fmt.Fprintf(w, "delivery\t%s\n", r.EstimatedDelivery.Format("2006-01-02"))
	return w.Flush()
}
