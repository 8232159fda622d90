package service

import (
	"context"
	"errors"
	"time"

	"gamemarket/internal/domain"
	"gamemarket/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutItem is one requested purchase line.
type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// CheckoutResult is the outcome of a successful checkout: one sale per
// distinct seller and the grand total across all of them.
type CheckoutResult struct {
	Sales      []*domain.Sale
	TotalCents int64
}

// Notifier delivers informational messages outside the checkout
// transaction. Implementations must tolerate being called after the sale
// has committed; their errors are logged, never surfaced.
type Notifier interface {
	SalesCreated(ctx context.Context, sales []*domain.Sale) error
}

// CheckoutService converts a validated set of items into per-seller sales.
type CheckoutService interface {
	Checkout(ctx context.Context, buyerID uuid.UUID, method domain.PaymentMethod, items []CheckoutItem) (*CheckoutResult, error)
}

type checkoutService struct {
	store    repository.SaleStore
	notifier Notifier
	logger   *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(store repository.SaleStore, notifier Notifier, logger *zap.Logger) CheckoutService {
	return &checkoutService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// sellerGroup collects the lines destined for a single sale.
type sellerGroup struct {
	sellerID   uuid.UUID
	items      []*domain.SaleItem
	totalCents int64
}

// Checkout validates every item against a locked product row, partitions the
// lines by seller, and writes sales, sale items, stock decrements, payments,
// and the cart deletion as one transaction. Any failure rolls the whole
// operation back: no partial sales, no partial stock mutation, cart intact.
func (s *checkoutService) Checkout(ctx context.Context, buyerID uuid.UUID, method domain.PaymentMethod, items []CheckoutItem) (*CheckoutResult, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	var result CheckoutResult

	err := s.store.WithTx(ctx, func(tx repository.SaleTx) error {
		now := time.Now()

		// Group lines by seller, preserving first-seen seller order.
		groups := []*sellerGroup{}
		bySeller := map[uuid.UUID]*sellerGroup{}
		var grandTotal int64

		for _, item := range items {
			product, err := tx.ProductForUpdate(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return &ProductUnavailableError{ProductID: item.ProductID}
				}
				return err
			}

			if product.SellerID == buyerID {
				return ErrSelfPurchase
			}

			if product.Stock < item.Quantity {
				return &InsufficientStockError{
					ProductID: product.ID,
					Requested: item.Quantity,
					Available: product.Stock,
				}
			}

			subtotal := product.PriceCents * int64(item.Quantity)
			grandTotal += subtotal

			group, ok := bySeller[product.SellerID]
			if !ok {
				group = &sellerGroup{sellerID: product.SellerID}
				bySeller[product.SellerID] = group
				groups = append(groups, group)
			}
			group.items = append(group.items, &domain.SaleItem{
				ID:             uuid.New(),
				ProductID:      product.ID,
				Quantity:       item.Quantity,
				UnitPriceCents: product.PriceCents,
				SubtotalCents:  subtotal,
			})
			group.totalCents += subtotal
		}

		// One sale, its items, stock decrements, and one payment per seller.
		sales := make([]*domain.Sale, 0, len(groups))
		for _, group := range groups {
			sale := &domain.Sale{
				ID:         uuid.New(),
				SellerID:   group.sellerID,
				BuyerID:    buyerID,
				TotalCents: group.totalCents,
				Status:     domain.SaleStatusPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.InsertSale(ctx, sale); err != nil {
				return err
			}

			for _, saleItem := range group.items {
				saleItem.SaleID = sale.ID
				if err := tx.InsertSaleItem(ctx, saleItem); err != nil {
					return err
				}
				if err := tx.DecrementStock(ctx, saleItem.ProductID, saleItem.Quantity); err != nil {
					if errors.Is(err, repository.ErrInsufficientStock) {
						// Reached when the same product appears on several
						// lines and their combined quantity exceeds stock.
						return &InsufficientStockError{
							ProductID: saleItem.ProductID,
							Requested: saleItem.Quantity,
						}
					}
					return err
				}
			}

			payment := &domain.Payment{
				ID:          uuid.New(),
				SaleID:      sale.ID,
				Method:      method,
				AmountCents: group.totalCents,
				Status:      domain.PaymentStatusPending,
				CreatedAt:   now,
			}
			if err := tx.InsertPayment(ctx, payment); err != nil {
				return err
			}

			sales = append(sales, sale)
		}

		// The entire cart is emptied on checkout, not only purchased lines.
		if err := tx.ClearCart(ctx, buyerID); err != nil {
			return err
		}

		result = CheckoutResult{Sales: sales, TotalCents: grandTotal}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout completed",
		zap.String("buyer_id", buyerID.String()),
		zap.Int("sales", len(result.Sales)),
		zap.Int64("total_cents", result.TotalCents),
	)

	s.notifySellers(result.Sales)

	return &result, nil
}

// notifySellers creates seller notifications outside the sale transaction.
// Failures are logged and swallowed; a lost notification never undoes a sale.
func (s *checkoutService) notifySellers(sales []*domain.Sale) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.notifier.SalesCreated(ctx, sales); err != nil {
			s.logger.Warn("failed to create sale notifications", zap.Error(err))
		}
	}()
}
