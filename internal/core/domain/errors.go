package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotFound      = errors.New("item not found")
	ErrBusy              = errors.New("inventory busy, try again")
	ErrStorageFault      = errors.New("storage fault")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidShipping   = errors.New("invalid shipping details")
	ErrInvalidTransition = errors.New("invalid checkout transition")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrSpinUsed          = errors.New("discount spin already used")
)

type InsufficientStockError struct {
	Item      ItemRef
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Item, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type ItemNotFoundError struct {
	Item ItemRef
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.Item)
}

func (e *ItemNotFoundError) Is(target error) bool { return target == ErrItemNotFound }

type InvalidQuantityError struct {
	Item     ItemRef
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d for %s must be at least 1", e.Quantity, e.Item)
}

func (e *InvalidQuantityError) Is(target error) bool { return target == ErrInvalidQuantity }

type InvalidShippingError struct {
	Field string
}

func (e *InvalidShippingError) Error() string {
	return fmt.Sprintf("invalid shipping details: %s", e.Field)
}

func (e *InvalidShippingError) Is(target error) bool { return target == ErrInvalidShipping }

// IsRetryable reports whether err is a transient condition the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}
