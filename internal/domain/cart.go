package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a buyer's cart. A buyer holds at most one line
// per product; adding the same product again merges quantities.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	AddedAt   time.Time `json:"added_at" db:"added_at"`
}

// CartItemDetail is a cart line joined with its product for display.
type CartItemDetail struct {
	CartItem
	ProductName   string    `json:"product_name"`
	PriceCents    int64     `json:"price_cents"`
	Stock         int       `json:"stock"`
	SellerID      uuid.UUID `json:"seller_id"`
	SellerName    string    `json:"seller_name"`
	SubtotalCents int64     `json:"subtotal_cents"`
}
