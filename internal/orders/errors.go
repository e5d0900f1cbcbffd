package orders

import "errors"

var (
	// ErrNotFound covers missing orders, cart items and products alike;
	// wrap it with context naming the missing resource.
	ErrNotFound = errors.New("orders: not found")

	// ErrUnauthorized is an ownership violation: the order or cart item
	// exists but belongs to another user.
	ErrUnauthorized = errors.New("orders: not owned by caller")

	// ErrEmptyCart means none of the referenced cart items resolved.
	ErrEmptyCart = errors.New("orders: no cart items resolved")

	// ErrInsufficientStock means a requested quantity exceeds current stock.
	ErrInsufficientStock = errors.New("orders: insufficient stock")

	// ErrIllegalState is returned for any (status, transition) pair that
	// is not in the transition table.
	ErrIllegalState = errors.New("orders: illegal status transition")
)
