package service

import (
	"context"
	"time"

	"gamemarket/internal/domain"
	"gamemarket/internal/repository"

	"github.com/google/uuid"
)

// ProductInput carries the writable fields of a product.
type ProductInput struct {
	CategoryID  uuid.UUID
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	ImageURL    string
	Active      bool
}

// CatalogService manages products and categories. Sellers own their
// listings; only the owner or an admin may change or remove one.
type CatalogService interface {
	CreateProduct(ctx context.Context, sellerID uuid.UUID, sellerRole string, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actorID uuid.UUID, actorRole string, productID uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actorID uuid.UUID, actorRole string, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*domain.Category, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// CreateProduct lists a new product under the calling seller
func (s *catalogService) CreateProduct(ctx context.Context, sellerID uuid.UUID, sellerRole string, input ProductInput) (*domain.Product, error) {
	if sellerRole != domain.RoleSeller && sellerRole != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		SellerID:    sellerID,
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
		Active:      input.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProduct updates a product owned by the actor (or any, for admins)
func (s *catalogService) UpdateProduct(ctx context.Context, actorID uuid.UUID, actorRole string, productID uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if product.SellerID != actorID && actorRole != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	product.CategoryID = input.CategoryID
	product.Name = input.Name
	product.Description = input.Description
	product.PriceCents = input.PriceCents
	product.Stock = input.Stock
	product.ImageURL = input.ImageURL
	product.Active = input.Active
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// DeleteProduct removes a product owned by the actor (or any, for admins)
func (s *catalogService) DeleteProduct(ctx context.Context, actorID uuid.UUID, actorRole string, productID uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	if product.SellerID != actorID && actorRole != domain.RoleAdmin {
		return ErrForbidden
	}

	return s.productRepo.Delete(ctx, productID)
}

// GetProduct retrieves a product by ID
func (s *catalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, productID)
}

// ListProducts retrieves products with filtering and pagination
func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.productRepo.List(ctx, filter, page, pageSize, sortBy, sortOrder)
}

// SearchProducts searches active products by name or description
func (s *catalogService) SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.productRepo.Search(ctx, query, page, pageSize)
}

// ListCategories retrieves all categories
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

// CreateCategory creates a category. Admin-only access is enforced at the
// route level.
func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}
