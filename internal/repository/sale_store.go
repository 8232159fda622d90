package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gamemarket/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
)

// SaleTx is the write surface available inside a sale transaction. Every
// statement runs on the same database transaction; the caller's function
// either commits as a whole or leaves no trace.
type SaleTx interface {
	// ProductForUpdate reads an active product and takes a row lock on it,
	// so concurrent checkouts against the same product serialize here.
	ProductForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	InsertSale(ctx context.Context, sale *domain.Sale) error
	InsertSaleItem(ctx context.Context, item *domain.SaleItem) error
	InsertPayment(ctx context.Context, payment *domain.Payment) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
	// ApprovePayment flips a pending payment to approved. Returns false if
	// no pending payment row matched, which is how a racing second
	// confirmation observes the first one.
	ApprovePayment(ctx context.Context, saleID uuid.UUID, transactionCode string, confirmedAt time.Time) (bool, error)
	MarkSalePaid(ctx context.Context, saleID uuid.UUID, updatedAt time.Time) error
}

// SaleStore runs functions inside a single database transaction with
// commit-or-rollback guaranteed on every exit path.
type SaleStore interface {
	WithTx(ctx context.Context, fn func(tx SaleTx) error) error
}

type saleStore struct {
	db *sql.DB
}

// NewSaleStore creates a new instance of SaleStore
func NewSaleStore(db *sql.DB) SaleStore {
	return &saleStore{db: db}
}

// WithTx acquires one connection from the pool, begins a transaction, runs
// fn against it, and commits only if fn returns nil. The deferred rollback
// is a no-op after a successful commit.
func (s *saleStore) WithTx(ctx context.Context, fn func(tx SaleTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&saleTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type saleTx struct {
	tx *sql.Tx
}

func (t *saleTx) ProductForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1 AND active = true
		FOR UPDATE
	`

	product, err := scanProduct(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to lock product row: %w", err)
	}

	return product, nil
}

func (t *saleTx) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	// The stock >= quantity guard backs up the locked re-read; with the row
	// lock held it can only fail if the caller skipped validation.
	query := `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`

	result, err := t.tx.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

func (t *saleTx) InsertSale(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (id, seller_id, buyer_id, total_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := t.tx.ExecContext(ctx, query,
		sale.ID, sale.SellerID, sale.BuyerID, sale.TotalCents, sale.Status,
		sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	return nil
}

func (t *saleTx) InsertSaleItem(ctx context.Context, item *domain.SaleItem) error {
	query := `
		INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price_cents, subtotal_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := t.tx.ExecContext(ctx, query,
		item.ID, item.SaleID, item.ProductID, item.Quantity,
		item.UnitPriceCents, item.SubtotalCents,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale item: %w", err)
	}

	return nil
}

func (t *saleTx) InsertPayment(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, sale_id, method, amount_cents, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := t.tx.ExecContext(ctx, query,
		payment.ID, payment.SaleID, payment.Method, payment.AmountCents,
		payment.Status, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

func (t *saleTx) ClearCart(ctx context.Context, userID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (t *saleTx) ApprovePayment(ctx context.Context, saleID uuid.UUID, transactionCode string, confirmedAt time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, transaction_code = $3, confirmed_at = $4
		WHERE sale_id = $1 AND status = $5
	`

	result, err := t.tx.ExecContext(ctx, query,
		saleID, domain.PaymentStatusApproved, transactionCode, confirmedAt,
		domain.PaymentStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to approve payment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (t *saleTx) MarkSalePaid(ctx context.Context, saleID uuid.UUID, updatedAt time.Time) error {
	query := `
		UPDATE sales
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := t.tx.ExecContext(ctx, query, saleID, domain.SaleStatusPaid, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to mark sale paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSaleNotFound
	}

	return nil
}
