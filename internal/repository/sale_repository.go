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
	ErrSaleNotFound    = errors.New("sale not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// StatementEntry is one row of a buyer's payment statement.
type StatementEntry struct {
	SaleID        uuid.UUID            `json:"sale_id"`
	PaymentID     uuid.UUID            `json:"payment_id"`
	Method        domain.PaymentMethod `json:"method"`
	AmountCents   int64                `json:"amount_cents"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	SaleStatus    domain.SaleStatus    `json:"sale_status"`
	SellerName    string               `json:"seller_name"`
	ItemCount     int                  `json:"item_count"`
	ConfirmedAt   *time.Time           `json:"confirmed_at"`
	CreatedAt     time.Time            `json:"created_at"`
}

// SaleRepository defines the interface for sale reads and single-row writes.
// Multi-row atomic writes (checkout, confirmation) go through SaleStore.
type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	ListItems(ctx context.Context, saleID uuid.UUID) ([]*domain.SaleItem, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, status *domain.SaleStatus, page, pageSize int) ([]*domain.Sale, int, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, status *domain.SaleStatus, page, pageSize int) ([]*domain.Sale, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SaleStatus, updatedAt time.Time) (*domain.Sale, error)
	FindPaymentBySaleID(ctx context.Context, saleID uuid.UUID) (*domain.Payment, error)
	Statement(ctx context.Context, buyerID uuid.UUID, status *domain.PaymentStatus, page, pageSize int) ([]*StatementEntry, int, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

const saleColumns = `id, seller_id, buyer_id, total_cents, status, created_at, updated_at`

func scanSale(row interface{ Scan(dest ...any) error }) (*domain.Sale, error) {
	sale := &domain.Sale{}
	err := row.Scan(
		&sale.ID,
		&sale.SellerID,
		&sale.BuyerID,
		&sale.TotalCents,
		&sale.Status,
		&sale.CreatedAt,
		&sale.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// FindByID retrieves a sale by ID
func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}

	return sale, nil
}

// ListItems retrieves the line items of a sale
func (r *saleRepository) ListItems(ctx context.Context, saleID uuid.UUID) ([]*domain.SaleItem, error) {
	query := `
		SELECT id, sale_id, product_id, quantity, unit_price_cents, subtotal_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sale items: %w", err)
	}
	defer rows.Close()

	items := []*domain.SaleItem{}
	for rows.Next() {
		item := &domain.SaleItem{}
		err := rows.Scan(
			&item.ID, &item.SaleID, &item.ProductID, &item.Quantity,
			&item.UnitPriceCents, &item.SubtotalCents,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale items: %w", err)
	}

	return items, nil
}

// ListByBuyer retrieves a buyer's purchases, newest first
func (r *saleRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, status *domain.SaleStatus, page, pageSize int) ([]*domain.Sale, int, error) {
	return r.list(ctx, "buyer_id", buyerID, status, page, pageSize)
}

// ListBySeller retrieves a seller's sales, newest first
func (r *saleRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, status *domain.SaleStatus, page, pageSize int) ([]*domain.Sale, int, error) {
	return r.list(ctx, "seller_id", sellerID, status, page, pageSize)
}

func (r *saleRepository) list(ctx context.Context, userColumn string, userID uuid.UUID, status *domain.SaleStatus, page, pageSize int) ([]*domain.Sale, int, error) {
	whereClause := fmt.Sprintf("WHERE %s = $1", userColumn)
	args := []interface{}{userID}

	if status != nil {
		whereClause += " AND status = $2"
		args = append(args, *status)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sales %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT %s
		FROM sales
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, saleColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, total, nil
}

// UpdateStatus sets a sale's status and returns the updated row
func (r *saleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SaleStatus, updatedAt time.Time) (*domain.Sale, error) {
	query := `
		UPDATE sales
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + saleColumns

	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id, status, updatedAt))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to update sale status: %w", err)
	}

	return sale, nil
}

// FindPaymentBySaleID retrieves the payment record of a sale
func (r *saleRepository) FindPaymentBySaleID(ctx context.Context, saleID uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, sale_id, method, amount_cents, status, transaction_code, confirmed_at, created_at
		FROM payments
		WHERE sale_id = $1
	`

	payment := &domain.Payment{}
	err := r.db.QueryRowContext(ctx, query, saleID).Scan(
		&payment.ID,
		&payment.SaleID,
		&payment.Method,
		&payment.AmountCents,
		&payment.Status,
		&payment.TransactionCode,
		&payment.ConfirmedAt,
		&payment.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}

	return payment, nil
}

// Statement retrieves a buyer's payments joined with their sales, newest first
func (r *saleRepository) Statement(ctx context.Context, buyerID uuid.UUID, status *domain.PaymentStatus, page, pageSize int) ([]*StatementEntry, int, error) {
	whereClause := "WHERE s.buyer_id = $1"
	args := []interface{}{buyerID}

	if status != nil {
		whereClause += " AND p.status = $2"
		args = append(args, *status)
	}

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM sales s
		JOIN payments p ON p.sale_id = s.id
		%s
	`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count statement entries: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT s.id, p.id, p.method, p.amount_cents, p.status, s.status,
		       u.name,
		       (SELECT COUNT(*) FROM sale_items si WHERE si.sale_id = s.id),
		       p.confirmed_at, s.created_at
		FROM sales s
		JOIN payments p ON p.sale_id = s.id
		JOIN users u ON s.seller_id = u.id
		%s
		ORDER BY s.created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query statement: %w", err)
	}
	defer rows.Close()

	entries := []*StatementEntry{}
	for rows.Next() {
		entry := &StatementEntry{}
		err := rows.Scan(
			&entry.SaleID, &entry.PaymentID, &entry.Method, &entry.AmountCents,
			&entry.PaymentStatus, &entry.SaleStatus, &entry.SellerName,
			&entry.ItemCount, &entry.ConfirmedAt, &entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan statement entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating statement entries: %w", err)
	}

	return entries, total, nil
}
