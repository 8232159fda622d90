package repository

import (
	"context"
	"testing"
	"time"

	"gamemarket/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func seedCategory(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testDB.Exec(
		`INSERT INTO categories (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		id, "Category "+id.String(), "", time.Now(),
	)
	if err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	return id
}

func TestProperty_ProductRoundTripPreservesAttributes(t *testing.T) {
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	sellerID := seedUser(t, domain.RoleSeller)
	categoryID := seedCategory(t)
	t.Cleanup(func() {
		_, _ = testDB.Exec("DELETE FROM products WHERE seller_id = $1", sellerID)
		_, _ = testDB.Exec("DELETE FROM categories WHERE id = $1", categoryID)
		_, _ = testDB.Exec("DELETE FROM users WHERE id = $1", sellerID)
	})

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, description string, priceCents int64, stock int, active bool) bool {
			product := &domain.Product{
				ID:          uuid.New(),
				SellerID:    sellerID,
				CategoryID:  categoryID,
				Name:        name,
				Description: description,
				PriceCents:  priceCents,
				Stock:       stock,
				Active:      active,
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != product.Name ||
				retrieved.Description != product.Description ||
				retrieved.PriceCents != product.PriceCents ||
				retrieved.Stock != product.Stock ||
				retrieved.Active != product.Active ||
				retrieved.SellerID != product.SellerID ||
				retrieved.CategoryID != product.CategoryID {
				t.Logf("FAIL: Attribute mismatch: stored %+v, got %+v", product, retrieved)
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,40}`),
		gen.RegexMatch(`[A-Za-z0-9 ]{0,100}`),
		gen.Int64Range(0, 10_000_000),
		gen.IntRange(0, 10_000),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_ListFiltersInactive(t *testing.T) {
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	sellerID := seedUser(t, domain.RoleSeller)
	categoryID := seedCategory(t)
	t.Cleanup(func() {
		_, _ = testDB.Exec("DELETE FROM products WHERE seller_id = $1", sellerID)
		_, _ = testDB.Exec("DELETE FROM categories WHERE id = $1", categoryID)
		_, _ = testDB.Exec("DELETE FROM users WHERE id = $1", sellerID)
	})

	makeProduct := func(active bool) *domain.Product {
		return &domain.Product{
			ID:         uuid.New(),
			SellerID:   sellerID,
			CategoryID: categoryID,
			Name:       "Listing test",
			PriceCents: 100,
			Stock:      1,
			Active:     active,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
	}

	if err := productRepo.Create(ctx, makeProduct(true)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := productRepo.Create(ctx, makeProduct(false)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	filter := ProductFilter{SellerID: &sellerID, ActiveOnly: true}
	products, total, err := productRepo.List(ctx, filter, 1, 10, "", SortOrderAsc)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(products) != 1 {
		t.Errorf("expected only the active product, got %d (total %d)", len(products), total)
	}

	filter.ActiveOnly = false
	_, total, err = productRepo.List(ctx, filter, 1, 10, "", SortOrderAsc)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected both products without the filter, got %d", total)
	}
}
