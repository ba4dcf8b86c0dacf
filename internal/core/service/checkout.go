package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

var transitions = map[domain.CheckoutStage][]domain.CheckoutStage{
	domain.StageCart:        {domain.StagePaymentForm},
	domain.StagePaymentForm: {domain.StageCommitting, domain.StageCart},
	domain.StageCommitting:  {domain.StageDelivered, domain.StageFailed},
	domain.StageFailed:      {domain.StagePaymentForm, domain.StageCart},
	domain.StageDelivered:   {},
}

func canTransition(from, to domain.CheckoutStage) bool {
	return slices.Contains(transitions[from], to)
}

// Handle carries one customer's checkout. The caller owns it and passes it to
// every Checkout call; nothing about a checkout lives anywhere else.
type Handle struct {
	mu          sync.Mutex
	id          string
	customerRef string
	cart        []domain.CartLine
	stage       domain.CheckoutStage
	attempt     int

	discount   *domain.DiscountResult
	couponCode string
	spun       bool

	receipt *domain.Receipt
	lastErr error
}

func (h *Handle) ID() string { return h.id }

func (h *Handle) CustomerRef() string { return h.customerRef }

func (h *Handle) Stage() domain.CheckoutStage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stage
}

func (h *Handle) Attempt() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempt
}

func (h *Handle) Cart() []domain.CartLine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.cart)
}

// Discount returns the active discount, false if none is resolved.
func (h *Handle) Discount() (domain.DiscountResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.discount == nil {
		return domain.DiscountResult{}, false
	}
	return *h.discount, true
}

func (h *Handle) Receipt() (domain.Receipt, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.receipt == nil {
		return domain.Receipt{}, false
	}
	return *h.receipt, true
}

func (h *Handle) LastError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func (h *Handle) transition(to domain.CheckoutStage) error {
	if !canTransition(h.stage, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, h.stage, to)
	}
	h.stage = to
	return nil
}

// nextAttempt starts a fresh attempt: the discount is resolved again and the
// spin is offered again. A remembered coupon code carries over.
func (h *Handle) nextAttempt() {
	h.attempt++
	h.lastErr = nil
	h.discount = nil
	h.spun = false
}

func (h *Handle) requireStage(stage domain.CheckoutStage, op string) error {
	if h.stage != stage {
		return fmt.Errorf("%w: %s not allowed in %s", domain.ErrInvalidTransition, op, h.stage)
	}
	return nil
}

// Checkout drives handles through cart -> payment_form -> committing ->
// delivered | failed. The only side effect happens inside PlaceOrder.
type Checkout struct {
	discounts *DiscountEngine
	orders    *OrderService
	log       *slog.Logger
}

func NewCheckout(discounts *DiscountEngine, orders *OrderService, log *slog.Logger) *Checkout {
	return &Checkout{discounts: discounts, orders: orders, log: log}
}

// Begin snapshots cart and requests checkout. An empty cart leaves the
// returned handle in the cart stage together with ErrEmptyCart.
func (c *Checkout) Begin(ctx context.Context, customerRef string, cart []domain.CartLine) (*Handle, error) {
	lines, err := domain.NormalizeCart(cart)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		id:          uuid.NewString(),
		customerRef: customerRef,
		cart:        lines,
		stage:       domain.StageCart,
		attempt:     1,
	}
	if len(lines) == 0 {
		return h, domain.ErrEmptyCart
	}
	if err := h.transition(domain.StagePaymentForm); err != nil {
		return nil, err
	}

	c.log.Debug("checkout started", "handle", h.id, "customer", customerRef, "lines", len(lines))
	return h, nil
}

// UpdateCart replaces the snapshot and drops the resolved discount. A
// remembered coupon code is resolved again at commit; a spin is not redrawn
// within the same attempt.
func (c *Checkout) UpdateCart(h *Handle, cart []domain.CartLine) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.stage {
	case domain.StageCart, domain.StagePaymentForm, domain.StageFailed:
	default:
		return fmt.Errorf("%w: cart update not allowed in %s", domain.ErrInvalidTransition, h.stage)
	}

	lines, err := domain.NormalizeCart(cart)
	if err != nil {
		return err
	}
	h.cart = lines
	h.discount = nil
	if h.stage == domain.StageFailed {
		h.nextAttempt()
	}

	if len(lines) == 0 {
		if h.stage != domain.StageCart {
			return h.transition(domain.StageCart)
		}
		return nil
	}
	if h.stage == domain.StagePaymentForm {
		return nil
	}
	return h.transition(domain.StagePaymentForm)
}

// ApplyCoupon makes a valid coupon the single active discount. An unusable
// code resolves to NONE and leaves the active discount as it was.
func (c *Checkout) ApplyCoupon(ctx context.Context, h *Handle, code string) (domain.DiscountResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.requireStage(domain.StagePaymentForm, "apply coupon"); err != nil {
		return domain.DiscountResult{}, err
	}

	res, err := c.discounts.ResolveCoupon(ctx, code)
	if err != nil {
		return domain.DiscountResult{}, err
	}
	if res.Source == domain.DiscountSourceCoupon {
		h.discount = &res
		h.couponCode = res.Code
	}
	return res, nil
}

func (c *Checkout) SpinDiscount(h *Handle) (domain.DiscountResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.requireStage(domain.StagePaymentForm, "spin"); err != nil {
		return domain.DiscountResult{}, err
	}
	if h.spun {
		return domain.DiscountResult{}, domain.ErrSpinUsed
	}

	res := c.discounts.Spin()
	h.spun = true
	h.discount = &res
	h.couponCode = ""
	return res, nil
}

// Commit places the order. Invalid shipping keeps the handle in payment_form;
// any placement error moves it to failed with the cart untouched.
func (c *Checkout) Commit(ctx context.Context, h *Handle, shipping domain.ShippingInfo) (domain.Receipt, error) {
	h.mu.Lock()
	if err := h.requireStage(domain.StagePaymentForm, "commit"); err != nil {
		h.mu.Unlock()
		return domain.Receipt{}, err
	}
	if err := shipping.Validate(); err != nil {
		h.mu.Unlock()
		return domain.Receipt{}, err
	}

	discount, err := c.activeDiscount(ctx, h)
	if err != nil {
		h.mu.Unlock()
		return domain.Receipt{}, err
	}
	if err := h.transition(domain.StageCommitting); err != nil {
		h.mu.Unlock()
		return domain.Receipt{}, err
	}
	req := PlaceOrderRequest{
		RequestID:   fmt.Sprintf("%s:%d", h.id, h.attempt),
		CustomerRef: h.customerRef,
		Lines:       slices.Clone(h.cart),
		Discount:    discount,
		Shipping:    shipping,
	}
	h.mu.Unlock()

	order, placeErr := c.orders.PlaceOrder(ctx, req)

	h.mu.Lock()
	defer h.mu.Unlock()

	if placeErr != nil {
		h.lastErr = placeErr
		if err := h.transition(domain.StageFailed); err != nil {
			return domain.Receipt{}, err
		}
		return domain.Receipt{}, placeErr
	}

	receipt := order.Receipt()
	h.receipt = &receipt
	h.discount = nil
	h.couponCode = ""
	if err := h.transition(domain.StageDelivered); err != nil {
		return domain.Receipt{}, err
	}
	return receipt, nil
}

// Retry re-opens the payment form after a failed attempt.
func (c *Checkout) Retry(h *Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.requireStage(domain.StageFailed, "retry"); err != nil {
		return err
	}
	if err := h.transition(domain.StagePaymentForm); err != nil {
		return err
	}
	h.nextAttempt()
	return nil
}

// activeDiscount must be called with h.mu held.
func (c *Checkout) activeDiscount(ctx context.Context, h *Handle) (domain.DiscountResult, error) {
	if h.discount != nil {
		return *h.discount, nil
	}
	if h.couponCode == "" {
		return domain.NoDiscount(), nil
	}
	res, err := c.discounts.ResolveCoupon(ctx, h.couponCode)
	if err != nil {
		return domain.DiscountResult{}, err
	}
	h.discount = &res
	return res, nil
}
