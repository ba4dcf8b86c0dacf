package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ItemRef identifies a purchasable size variant of a product, e.g. "TEE-M".
type ItemRef string

type InventoryItem struct {
	Ref        ItemRef
	ProductRef string
	Size       string
	UnitPrice  decimal.Decimal
	UnitCost   decimal.Decimal
	Stock      int
	Version    int // bumped on every decrement
	UpdatedAt  time.Time
}

// Validate checks the catalog invariants the order path relies on.
func (i InventoryItem) Validate() error {
	if i.Ref == "" {
		return fmt.Errorf("inventory item: empty ref")
	}
	if i.UnitPrice.IsNegative() {
		return fmt.Errorf("inventory item %s: negative unit price", i.Ref)
	}
	if i.UnitCost.IsNegative() {
		return fmt.Errorf("inventory item %s: negative unit cost", i.Ref)
	}
	if !i.UnitCost.LessThan(i.UnitPrice) {
		return fmt.Errorf("inventory item %s: unit cost %s must be below unit price %s", i.Ref, i.UnitCost, i.UnitPrice)
	}
	if i.Stock < 0 {
		return fmt.Errorf("inventory item %s: negative stock", i.Ref)
	}
	return nil
}

// StockLine is one guarded decrement.
type StockLine struct {
	Item     ItemRef
	Quantity int
}
