package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gamemarket/internal/domain"

	"github.com/google/uuid"
)

type saleFixture struct {
	buyerID   uuid.UUID
	sellerID  uuid.UUID
	productID uuid.UUID
}

// newSaleFixture seeds a buyer, a seller, and one product with the given stock.
func newSaleFixture(t *testing.T, stock int) saleFixture {
	t.Helper()

	f := saleFixture{
		buyerID:   seedUser(t, domain.RoleUser),
		sellerID:  seedUser(t, domain.RoleSeller),
		productID: uuid.New(),
	}
	categoryID := seedCategory(t)

	_, err := testDB.Exec(
		`INSERT INTO products (id, seller_id, category_id, name, price_cents, stock, active)
		 VALUES ($1, $2, $3, 'fixture product', 1000, $4, true)`,
		f.productID, f.sellerID, categoryID, stock,
	)
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	t.Cleanup(func() {
		_, _ = testDB.Exec("DELETE FROM payments WHERE sale_id IN (SELECT id FROM sales WHERE buyer_id = $1)", f.buyerID)
		_, _ = testDB.Exec("DELETE FROM sale_items WHERE sale_id IN (SELECT id FROM sales WHERE buyer_id = $1)", f.buyerID)
		_, _ = testDB.Exec("DELETE FROM sales WHERE buyer_id = $1", f.buyerID)
		_, _ = testDB.Exec("DELETE FROM cart_items WHERE user_id = $1", f.buyerID)
		_, _ = testDB.Exec("DELETE FROM products WHERE id = $1", f.productID)
		_, _ = testDB.Exec("DELETE FROM categories WHERE id = $1", categoryID)
		_, _ = testDB.Exec("DELETE FROM users WHERE id IN ($1, $2)", f.buyerID, f.sellerID)
	})

	return f
}

func (f saleFixture) stock(t *testing.T) int {
	t.Helper()
	var stock int
	if err := testDB.QueryRow("SELECT stock FROM products WHERE id = $1", f.productID).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	return stock
}

// writeSale performs a full single-seller checkout write inside one
// transaction: sale, item, stock decrement, payment, cart wipe.
func writeSale(ctx context.Context, tx SaleTx, f saleFixture, quantity int) (*domain.Sale, error) {
	product, err := tx.ProductForUpdate(ctx, f.productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, ErrInsufficientStock
	}

	now := time.Now()
	sale := &domain.Sale{
		ID:         uuid.New(),
		SellerID:   f.sellerID,
		BuyerID:    f.buyerID,
		TotalCents: product.PriceCents * int64(quantity),
		Status:     domain.SaleStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.InsertSale(ctx, sale); err != nil {
		return nil, err
	}
	if err := tx.InsertSaleItem(ctx, &domain.SaleItem{
		ID:             uuid.New(),
		SaleID:         sale.ID,
		ProductID:      f.productID,
		Quantity:       quantity,
		UnitPriceCents: product.PriceCents,
		SubtotalCents:  product.PriceCents * int64(quantity),
	}); err != nil {
		return nil, err
	}
	if err := tx.DecrementStock(ctx, f.productID, quantity); err != nil {
		return nil, err
	}
	if err := tx.InsertPayment(ctx, &domain.Payment{
		ID:          uuid.New(),
		SaleID:      sale.ID,
		Method:      domain.PaymentMethodPix,
		AmountCents: sale.TotalCents,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   now,
	}); err != nil {
		return nil, err
	}
	if err := tx.ClearCart(ctx, f.buyerID); err != nil {
		return nil, err
	}
	return sale, nil
}

func TestSaleStore_CommitsWholeCheckout(t *testing.T) {
	ctx := context.Background()
	store := NewSaleStore(testDB)
	f := newSaleFixture(t, 10)

	// Seed a cart line so the wipe is observable.
	_, err := testDB.Exec(
		`INSERT INTO cart_items (id, user_id, product_id, quantity) VALUES ($1, $2, $3, 2)`,
		uuid.New(), f.buyerID, f.productID,
	)
	if err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}

	var sale *domain.Sale
	err = store.WithTx(ctx, func(tx SaleTx) error {
		sale, err = writeSale(ctx, tx, f, 3)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	if got := f.stock(t); got != 7 {
		t.Errorf("expected stock 7 after checkout, got %d", got)
	}

	var cartLines int
	if err := testDB.QueryRow("SELECT COUNT(*) FROM cart_items WHERE user_id = $1", f.buyerID).Scan(&cartLines); err != nil {
		t.Fatalf("failed to count cart lines: %v", err)
	}
	if cartLines != 0 {
		t.Errorf("expected cart cleared, got %d lines", cartLines)
	}

	saleRepo := NewSaleRepository(testDB)
	stored, err := saleRepo.FindByID(ctx, sale.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if stored.Status != domain.SaleStatusPending {
		t.Errorf("expected pending sale, got %s", stored.Status)
	}

	payment, err := saleRepo.FindPaymentBySaleID(ctx, sale.ID)
	if err != nil {
		t.Fatalf("FindPaymentBySaleID failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusPending || payment.AmountCents != 3000 {
		t.Errorf("unexpected payment: %+v", payment)
	}
}

func TestSaleStore_RollsBackEverythingOnError(t *testing.T) {
	ctx := context.Background()
	store := NewSaleStore(testDB)
	f := newSaleFixture(t, 10)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx SaleTx) error {
		if _, err := writeSale(ctx, tx, f, 3); err != nil {
			return err
		}
		// Everything above succeeded; fail after the writes.
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	if got := f.stock(t); got != 10 {
		t.Errorf("expected stock unchanged at 10 after rollback, got %d", got)
	}

	var sales int
	if err := testDB.QueryRow("SELECT COUNT(*) FROM sales WHERE buyer_id = $1", f.buyerID).Scan(&sales); err != nil {
		t.Fatalf("failed to count sales: %v", err)
	}
	if sales != 0 {
		t.Errorf("expected no sales after rollback, got %d", sales)
	}
}

func TestSaleStore_DecrementStockGuard(t *testing.T) {
	ctx := context.Background()
	store := NewSaleStore(testDB)
	f := newSaleFixture(t, 2)

	err := store.WithTx(ctx, func(tx SaleTx) error {
		return tx.DecrementStock(ctx, f.productID, 5)
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := f.stock(t); got != 2 {
		t.Errorf("expected stock unchanged at 2, got %d", got)
	}
}

func TestSaleStore_ProductForUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewSaleStore(testDB)
	f := newSaleFixture(t, 5)

	t.Run("missing product", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx SaleTx) error {
			_, err := tx.ProductForUpdate(ctx, uuid.New())
			return err
		})
		if !errors.Is(err, ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
	})

	t.Run("inactive product", func(t *testing.T) {
		if _, err := testDB.Exec("UPDATE products SET active = false WHERE id = $1", f.productID); err != nil {
			t.Fatalf("failed to deactivate product: %v", err)
		}
		t.Cleanup(func() {
			_, _ = testDB.Exec("UPDATE products SET active = true WHERE id = $1", f.productID)
		})

		err := store.WithTx(ctx, func(tx SaleTx) error {
			_, err := tx.ProductForUpdate(ctx, f.productID)
			return err
		})
		if !errors.Is(err, ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound for inactive product, got %v", err)
		}
	})
}

// Concurrent checkouts against the same product must serialize on the row
// lock: stock never goes negative and exactly stock/quantity buyers win.
func TestSaleStore_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	ctx := context.Background()
	store := NewSaleStore(testDB)
	f := newSaleFixture(t, 5)

	const buyers = 8
	var wg sync.WaitGroup
	results := make(chan error, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.WithTx(ctx, func(tx SaleTx) error {
				_, err := writeSale(ctx, tx, f, 1)
				return err
			})
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrInsufficientStock):
			lost++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}

	if won != 5 || lost != 3 {
		t.Errorf("expected 5 winners and 3 losers, got %d/%d", won, lost)
	}
	if got := f.stock(t); got != 0 {
		t.Errorf("expected stock drained to 0, got %d", got)
	}
}

func TestSaleStore_ApprovePaymentIsGuarded(t *testing.T) {
	ctx := context.Background()
	store := NewSaleStore(testDB)
	f := newSaleFixture(t, 5)

	var sale *domain.Sale
	err := store.WithTx(ctx, func(tx SaleTx) error {
		var err error
		sale, err = writeSale(ctx, tx, f, 1)
		return err
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	now := time.Now()

	// First confirmation wins.
	err = store.WithTx(ctx, func(tx SaleTx) error {
		ok, err := tx.ApprovePayment(ctx, sale.ID, "TX-1", now)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("first approval should match the pending payment")
		}
		return tx.MarkSalePaid(ctx, sale.ID, now)
	})
	if err != nil {
		t.Fatalf("confirmation failed: %v", err)
	}

	// Second confirmation matches zero rows.
	err = store.WithTx(ctx, func(tx SaleTx) error {
		ok, err := tx.ApprovePayment(ctx, sale.ID, "TX-2", now)
		if err != nil {
			return err
		}
		if ok {
			t.Error("second approval must not match an approved payment")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("second confirmation errored: %v", err)
	}

	saleRepo := NewSaleRepository(testDB)
	payment, err := saleRepo.FindPaymentBySaleID(ctx, sale.ID)
	if err != nil {
		t.Fatalf("FindPaymentBySaleID failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusApproved {
		t.Errorf("expected approved payment, got %s", payment.Status)
	}
	if payment.TransactionCode == nil || *payment.TransactionCode != "TX-1" {
		t.Errorf("expected the first transaction code to stick, got %v", payment.TransactionCode)
	}

	stored, err := saleRepo.FindByID(ctx, sale.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if stored.Status != domain.SaleStatusPaid {
		t.Errorf("expected paid sale, got %s", stored.Status)
	}
}
