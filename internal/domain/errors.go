package domain

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors wrap one of these so callers can branch with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPreconditionFailed = errors.New("precondition failed")
)

var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCartLineNotFound = fmt.Errorf("cart line %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)

	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be greater than 0", ErrInvalidArgument)
	ErrQuantityTooLarge = fmt.Errorf("%w: line quantity must not exceed %d", ErrInvalidArgument, MaxLineQuantity)
	ErrInvalidStatus    = fmt.Errorf("%w: unknown order status", ErrInvalidArgument)
	ErrMissingPaymentID = fmt.Errorf("%w: payment id is required", ErrInvalidArgument)

	ErrEmptyCart = fmt.Errorf("%w: cart is empty", ErrPreconditionFailed)
)
