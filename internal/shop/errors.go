package shop

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart: checkout attempted with no cart lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrVariantNotFound: a variant key resolves to no catalog row at all.
	ErrVariantNotFound = errors.New("variant not found")

	// ErrCheckoutConflict: the checkout transaction kept losing to
	// concurrent checkouts and ran out of retries.
	ErrCheckoutConflict = errors.New("checkout conflicted with concurrent orders, try again")

	// ErrStorageUnavailable: the store is unreachable or timed out.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// LineItemNotFoundError: a cart line's variant key is malformed or no
// longer resolves, e.g. the product was deleted after being carted.
type LineItemNotFoundError struct {
	DisplayName string
	Key         string
}

func (e *LineItemNotFoundError) Error() string {
	if e.DisplayName != "" {
		return fmt.Sprintf("product %q is no longer available", e.DisplayName)
	}
	return fmt.Sprintf("cart item %q is no longer available", e.Key)
}

// InsufficientStockError: the conditional decrement failed because the
// requested quantity exceeds what is left.
type InsufficientStockError struct {
	DisplayName string
	Requested   int
	Remaining   int
}

func (e *InsufficientStockError) Error() string {
	name := e.DisplayName
	if name == "" {
		name = "item"
	}
	return fmt.Sprintf("not enough stock for %q: requested %d, %d left", name, e.Requested, e.Remaining)
}
