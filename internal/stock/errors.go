package stock

import "errors"

var (
	// ErrNotFound is returned by direct by-id lookups only; compound key
	// reads return a zero-valued record instead.
	ErrNotFound = errors.New("stock record not found")

	// ErrInsufficientStock means the conditional reserved-quantity
	// increment was denied: available < requested at commit time.
	ErrInsufficientStock = errors.New("insufficient stock available")

	// ErrInvalidID means a malformed product/variant/warehouse/order id.
	ErrInvalidID = errors.New("invalid identifier")
)
