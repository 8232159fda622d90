package domain

import (
	"time"

	"github.com/google/uuid"
)

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusDelivered SaleStatus = "delivered"
	SaleStatusCancelled SaleStatus = "cancelled"
	SaleStatusDisputed  SaleStatus = "disputed"
)

// updateTargets are the statuses a seller or admin may set on a sale.
// The pending state is only ever assigned at checkout.
var updateTargets = map[SaleStatus]bool{
	SaleStatusPaid:      true,
	SaleStatusDelivered: true,
	SaleStatusCancelled: true,
	SaleStatusDisputed:  true,
}

// ValidUpdateTarget reports whether s may be set via a status update.
func (s SaleStatus) ValidUpdateTarget() bool {
	return updateTargets[s]
}

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// PaymentMethod identifies how a buyer pays.
type PaymentMethod string

const (
	PaymentMethodPix     PaymentMethod = "pix"
	PaymentMethodCard    PaymentMethod = "cartao"
	PaymentMethodBoleto  PaymentMethod = "boleto"
	PaymentMethodBalance PaymentMethod = "saldo"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodCard, PaymentMethodBoleto, PaymentMethodBalance:
		return true
	}
	return false
}

// Sale is one seller's portion of a checked-out cart. A checkout spanning
// N distinct sellers creates N sales; a sale never mixes sellers.
type Sale struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	SellerID   uuid.UUID  `json:"seller_id" db:"seller_id"`
	BuyerID    uuid.UUID  `json:"buyer_id" db:"buyer_id"`
	TotalCents int64      `json:"total_cents" db:"total_cents"`
	Status     SaleStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// SaleItem is one product line within a sale. The unit price is frozen at
// purchase time; the row is immutable after creation.
type SaleItem struct {
	ID             uuid.UUID `json:"id" db:"id"`
	SaleID         uuid.UUID `json:"sale_id" db:"sale_id"`
	ProductID      uuid.UUID `json:"product_id" db:"product_id"`
	Quantity       int       `json:"quantity" db:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents" db:"unit_price_cents"`
	SubtotalCents  int64     `json:"subtotal_cents" db:"subtotal_cents"`
}

// Payment is the 1:1 settlement record of a sale.
type Payment struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	SaleID          uuid.UUID     `json:"sale_id" db:"sale_id"`
	Method          PaymentMethod `json:"method" db:"method"`
	AmountCents     int64         `json:"amount_cents" db:"amount_cents"`
	Status          PaymentStatus `json:"status" db:"status"`
	TransactionCode *string       `json:"transaction_code" db:"transaction_code"`
	ConfirmedAt     *time.Time    `json:"confirmed_at" db:"confirmed_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}
