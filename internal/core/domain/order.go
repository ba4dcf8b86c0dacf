package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderID string

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusFailed     OrderStatus = "failed"
)

// DeliveryWindow is the promised delivery lead time.
const DeliveryWindow = 7 * 24 * time.Hour

type Order struct {
	ID                OrderID
	CustomerRef       string
	Subtotal          decimal.Decimal
	DiscountRate      decimal.Decimal
	DiscountCode      string
	FinalTotal        decimal.Decimal
	Status            OrderStatus
	TrackingID        string
	ShippingAddress   string
	CreatedAt         time.Time
	EstimatedDelivery time.Time
	Lines             []OrderLine
}

// OrderLine freezes price and cost at the time of sale.
type OrderLine struct {
	OrderID         OrderID
	LineNo          int
	Item            ItemRef
	Quantity        int
	UnitPriceAtSale decimal.Decimal
	UnitCostAtSale  decimal.Decimal
}

func (l OrderLine) Amount() decimal.Decimal {
	return l.UnitPriceAtSale.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewOrder assembles a processing order from priced lines. Line order ids and
// numbers are assigned here; totals are derived from the lines.
func NewOrder(id OrderID, customerRef string, lines []OrderLine, discount DiscountResult, address string, now time.Time) Order {
	priced := make([]OrderLine, len(lines))
	subtotal := decimal.Zero
	for i, l := range lines {
		l.OrderID = id
		l.LineNo = i + 1
		priced[i] = l
		subtotal = subtotal.Add(l.Amount())
	}
	now = now.UTC()
	return Order{
		ID:                id,
		CustomerRef:       customerRef,
		Subtotal:          subtotal,
		DiscountRate:      discount.Rate,
		DiscountCode:      discount.Code,
		FinalTotal:        FinalTotal(subtotal, discount.Rate),
		Status:            OrderStatusProcessing,
		TrackingID:        TrackingID(customerRef, now),
		ShippingAddress:   address,
		CreatedAt:         now,
		EstimatedDelivery: now.Add(DeliveryWindow),
		Lines:             priced,
	}
}

// FinalTotal applies rate to subtotal and rounds to cents.
func FinalTotal(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromInt(1).Sub(rate)).Round(2)
}

// TrackingID renders DEL-<customer digest>-<ddHHMM>.
func TrackingID(customerRef string, at time.Time) string {
	sum := sha256.Sum256([]byte(customerRef))
	digest := strings.ToUpper(hex.EncodeToString(sum[:])[:6])
	return "DEL-" + digest + "-" + at.Format("021504")
}

func (o Order) Receipt() Receipt {
	return Receipt{
		OrderID:           o.ID,
		TrackingID:        o.TrackingID,
		Subtotal:          o.Subtotal,
		DiscountRate:      o.DiscountRate,
		DiscountCode:      o.DiscountCode,
		FinalTotal:        o.FinalTotal,
		EstimatedDelivery: o.EstimatedDelivery,
	}
}

// Receipt is what a delivered checkout hands back to the caller.
type Receipt struct {
	OrderID           OrderID
	TrackingID        string
	Subtotal          decimal.Decimal
	DiscountRate      decimal.Decimal
	DiscountCode      string
	FinalTotal        decimal.Decimal
	EstimatedDelivery time.Time
}
