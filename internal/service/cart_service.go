package service

import (
	"context"
	"errors"
	"time"

	"gamemarket/internal/domain"
	"gamemarket/internal/repository"

	"github.com/google/uuid"
)

// CartView is the buyer's cart with its running total.
type CartView struct {
	Items      []*domain.CartItemDetail `json:"items"`
	TotalCents int64                    `json:"total_cents"`
	Count      int                      `json:"count"`
}

// CartService manages the buyer's pre-checkout selection.
type CartService interface {
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	View(ctx context.Context, userID uuid.UUID) (*CartView, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.CartItem, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Items(ctx context.Context, userID uuid.UUID) ([]CheckoutItem, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// Add puts a product in the cart. Adding a product the buyer already
// carries merges quantities; the merged amount may not exceed stock.
func (s *cartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil || !product.Active {
		if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, &ProductUnavailableError{ProductID: productID}
	}

	if product.SellerID == userID {
		return nil, ErrSelfPurchase
	}

	newQuantity := quantity
	if existing, err := s.cartRepo.FindLine(ctx, userID, productID); err == nil {
		newQuantity += existing.Quantity
	} else if !errors.Is(err, repository.ErrCartItemNotFound) {
		return nil, err
	}

	if newQuantity > product.Stock {
		return nil, &InsufficientStockError{
			ProductID: productID,
			Requested: newQuantity,
			Available: product.Stock,
		}
	}

	return s.cartRepo.Upsert(ctx, &domain.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  newQuantity,
		AddedAt:   time.Now(),
	})
}

// View returns the cart lines with product data and the running total
func (s *cartService) View(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, item := range items {
		total += item.SubtotalCents
	}

	return &CartView{Items: items, TotalCents: total, Count: len(items)}, nil
}

// UpdateQuantity sets a cart line's quantity, capped by available stock
func (s *cartService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.cartRepo.FindByID(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	if quantity > product.Stock {
		return nil, &InsufficientStockError{
			ProductID: product.ID,
			Requested: quantity,
			Available: product.Stock,
		}
	}

	return s.cartRepo.UpdateQuantity(ctx, itemID, userID, quantity)
}

// Remove deletes one cart line
func (s *cartService) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.cartRepo.Delete(ctx, itemID, userID)
}

// Clear empties the cart
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.cartRepo.Clear(ctx, userID)
}

// Items returns the cart as checkout input, so callers can check out
// whatever the buyer currently carries.
func (s *cartService) Items(ctx context.Context, userID uuid.UUID) ([]CheckoutItem, error) {
	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]CheckoutItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, CheckoutItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return items, nil
}
