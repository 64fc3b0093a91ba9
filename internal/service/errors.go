package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOutOfStock         = errors.New("insufficient stock")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderTerminal      = errors.New("order already in terminal status")
	ErrDiscountInvalid    = errors.New("discount code invalid or expired")
	ErrDiscountExhausted  = errors.New("discount usage limit reached")
	ErrDiscountUsed       = errors.New("discount already used by this user")
	ErrTrackingCollision  = errors.New("tracking code collision")
)

// MinPurchaseError несёт порог, чтобы показать его пользователю в сообщении.
type MinPurchaseError struct {
	Min int64
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("minimum purchase of %d not met", e.Min)
}
