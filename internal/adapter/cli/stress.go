package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
	"github.com/rl1809/tshirt-checkout/internal/core/service"
)

// stressResult tallies one stress run.
type stressResult struct {
	success      int32
	soldOut      int32
	busy         int32
	other        int32
	initialStock int
	finalStock   int
	elapsed      time.Duration
}

func newStressCmd(load configLoader) *cobra.Command {
	var (
		item     string
		stock    int
		requests int
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Race concurrent orders for one item and verify nothing oversells",
		RunE: func(cmd *cobra.Command, args []string) error {
			if stock < 0 || requests < 1 {
				return fmt.Errorf("stock must be >= 0 and requests >= 1")
			}

			return withApp(cmd, load, func(ctx context.Context, a *app) error {
				res, err := runStress(ctx, a, domain.ItemRef(item), stock, requests)
				if err != nil {
					return err
				}
				return reportStress(cmd, res, requests)
			})
		},
	}

	cmd.Flags().StringVar(&item, "item", "STRESS-TEE", "Item to race for; it is reset to --stock first")
	cmd.Flags().IntVar(&stock, "stock", 20, "Initial stock")
	cmd.Flags().IntVar(&requests, "requests", 50, "Concurrent single-unit orders")

	return cmd
}

func runStress(ctx context.Context, a *app, ref domain.ItemRef, stock, requests int) (stressResult, error) {
	err := a.ledger.UpsertItem(ctx, domain.InventoryItem{
		Ref:        ref,
		ProductRef: "Stress Tee",
		Size:       "M",
		UnitPrice:  decimal.RequireFromString("20.00"),
		UnitCost:   decimal.RequireFromString("8.00"),
		Stock:      stock,
	})
	if err != nil {
		return stressResult{}, fmt.Errorf("reset stress item: %w", err)
	}

	res := stressResult{initialStock: stock}
	runID := time.Now().UnixNano()

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(user int) {
			defer wg.Done()

			_, err := a.orders.PlaceOrder(ctx, service.PlaceOrderRequest{
				RequestID:   fmt.Sprintf("stress-%d-%d", runID, user),
				CustomerRef: fmt.Sprintf("user-%d", user),
				Lines:       []domain.CartLine{{Item: ref, Quantity: 1}},
				Discount:    domain.NoDiscount(),
				Shipping:    domain.ShippingInfo{Address: "stress lane"},
			})
			switch {
			case err == nil:
				atomic.AddInt32(&res.success, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt32(&res.soldOut, 1)
			case errors.Is(err, domain.ErrBusy):
				atomic.AddInt32(&res.busy, 1)
			default:
				atomic.AddInt32(&res.other, 1)
			}
		}(i)
	}
	wg.Wait()
	res.elapsed = time.Since(start)

	res.finalStock, err = a.store.CurrentStock(ctx, ref)
	if err != nil {
		return stressResult{}, err
	}
	return res, nil
}

func reportStress(cmd *cobra.Command, res stressResult, requests int) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "========== STRESS TEST RESULTS ==========")
	fmt.Fprintf(out, "Initial Stock:    %d\n", res.initialStock)
	fmt.Fprintf(out, "Total Requests:   %d\n", requests)
	fmt.Fprintf(out, "Successful:       %d\n", res.success)
	fmt.Fprintf(out, "Sold out:         %d\n", res.soldOut)
	fmt.Fprintf(out, "Busy:             %d\n", res.busy)
	fmt.Fprintf(out, "Other failures:   %d\n", res.other)
	fmt.Fprintf(out, "Final Stock:      %d\n", res.finalStock)
	fmt.Fprintf(out, "Duration:         %v\n", res.elapsed)
	fmt.Fprintln(out, "==========================================")

	want := min(res.initialStock, requests)
	if int(res.success) != want || res.other > 0 {
		return fmt.Errorf("expected %d successful orders, got %d (%d unexpected failures)", want, res.success, res.other)
	}
	if res.finalStock != res.initialStock-int(res.success) {
		return fmt.Errorf("stock drifted: %d - %d orders != %d", res.initialStock, res.success, res.finalStock)
	}
	fmt.Fprintf(out, "PASS: %d orders succeeded, stock never went negative\n", res.success)
	return nil
}
