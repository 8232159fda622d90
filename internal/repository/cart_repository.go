package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gamemarket/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	Upsert(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error)
	FindLine(ctx context.Context, userID, productID uuid.UUID) (*domain.CartItem, error)
	FindByID(ctx context.Context, id, userID uuid.UUID) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, id, userID uuid.UUID, quantity int) (*domain.CartItem, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItemDetail, error)
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// Upsert inserts a cart line or, if the buyer already carries the product,
// replaces its quantity. The caller decides the merged quantity so stock
// checks happen before the write.
func (r *cartRepository) Upsert(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, added_at = EXCLUDED.added_at
		RETURNING id, user_id, product_id, quantity, added_at
	`

	saved := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query,
		item.ID, item.UserID, item.ProductID, item.Quantity, item.AddedAt,
	).Scan(&saved.ID, &saved.UserID, &saved.ProductID, &saved.Quantity, &saved.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return saved, nil
}

// FindLine retrieves the buyer's line for a product, if any
func (r *cartRepository) FindLine(ctx context.Context, userID, productID uuid.UUID) (*domain.CartItem, error) {
	query := `
		SELECT id, user_id, product_id, quantity, added_at
		FROM cart_items
		WHERE user_id = $1 AND product_id = $2
	`

	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query, userID, productID).Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.AddedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart line: %w", err)
	}

	return item, nil
}

// FindByID retrieves a cart line by ID, scoped to the owning user
func (r *cartRepository) FindByID(ctx context.Context, id, userID uuid.UUID) (*domain.CartItem, error) {
	query := `
		SELECT id, user_id, product_id, quantity, added_at
		FROM cart_items
		WHERE id = $1 AND user_id = $2
	`

	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.AddedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

// UpdateQuantity sets the quantity of a cart line
func (r *cartRepository) UpdateQuantity(ctx context.Context, id, userID uuid.UUID, quantity int) (*domain.CartItem, error) {
	query := `
		UPDATE cart_items
		SET quantity = $3
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, product_id, quantity, added_at
	`

	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query, id, userID, quantity).Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.AddedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return item, nil
}

// Delete removes a cart line, scoped to the owning user
func (r *cartRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// Clear removes every cart line of a user
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// ListByUser retrieves the user's cart lines joined with product and seller
// data. Lines whose product went inactive are excluded from the view.
func (r *cartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItemDetail, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.added_at,
		       p.name, p.price_cents, p.stock, p.seller_id, u.name,
		       (c.quantity * p.price_cents) AS subtotal_cents
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		JOIN users u ON p.seller_id = u.id
		WHERE c.user_id = $1 AND p.active = true
		ORDER BY c.added_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItemDetail{}
	for rows.Next() {
		item := &domain.CartItemDetail{}
		err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.AddedAt,
			&item.ProductName, &item.PriceCents, &item.Stock, &item.SellerID, &item.SellerName,
			&item.SubtotalCents,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}
