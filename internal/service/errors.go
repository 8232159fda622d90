package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart            = errors.New("no items provided")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrSelfPurchase         = errors.New("you cannot buy your own products")
	ErrAlreadyConfirmed     = errors.New("payment has already been confirmed")
	ErrForbidden            = errors.New("insufficient permissions")
	ErrInvalidSaleStatus    = errors.New("invalid sale status")
	ErrAlreadySeller        = errors.New("user is already a seller")
)

// ProductUnavailableError reports a product that does not exist or is no
// longer active.
type ProductUnavailableError struct {
	ProductID uuid.UUID
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s not found or inactive", e.ProductID)
}

// InsufficientStockError reports a quantity that exceeds available stock.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d, available %d)",
		e.ProductID, e.Requested, e.Available)
}
